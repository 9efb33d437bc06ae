package testutils

import (
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/mock"
)

type MockSessionProvider struct {
	mock.Mock
}

func (m *MockSessionProvider) HasSession(c echo.Context) bool {
	args := m.Called(c)
	return args.Bool(0)
}

func (m *MockSessionProvider) Login(c echo.Context, userID int64) error {
	args := m.Called(c, userID)
	return args.Error(0)
}
