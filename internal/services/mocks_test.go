package services

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type MockLeaseDirectory struct {
	mock.Mock
}

func (m *MockLeaseDirectory) ActiveLeases(ctx context.Context, propertyID int64) ([]Lease, error) {
	args := m.Called(ctx, propertyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Lease), args.Error(1)
}
