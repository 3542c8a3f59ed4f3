package store

import (
	"github.com/npezzotti/go-chatrelay/internal/types"
	"github.com/stretchr/testify/mock"
)

type MockMessageStore struct {
	mock.Mock
}

func (m *MockMessageStore) EnsureRoom(name string) *Room {
	args := m.Called(name)
	if r, ok := args.Get(0).(*Room); ok {
		return r
	}
	return nil
}
func (m *MockMessageStore) Append(room string, msg types.Message) []string {
	args := m.Called(room, msg)
	return args.Get(0).([]string)
}
func (m *MockMessageStore) RecentHistory(room string, limit int) []types.Message {
	args := m.Called(room, limit)
	return args.Get(0).([]types.Message)
}
func (m *MockMessageStore) FindById(room, messageId string) (types.Message, bool) {
	args := m.Called(room, messageId)
	return args.Get(0).(types.Message), args.Bool(1)
}
func (m *MockMessageStore) MarkRead(room, messageId string) (types.Message, bool, bool) {
	args := m.Called(room, messageId)
	return args.Get(0).(types.Message), args.Bool(1), args.Bool(2)
}
func (m *MockMessageStore) Join(room, connId string, limit int) ([]types.Message, bool) {
	args := m.Called(room, connId, limit)
	return args.Get(0).([]types.Message), args.Bool(1)
}
func (m *MockMessageStore) Leave(room, connId string) bool {
	args := m.Called(room, connId)
	return args.Bool(0)
}
func (m *MockMessageStore) LeaveAll(connId string) []string {
	args := m.Called(connId)
	return args.Get(0).([]string)
}
func (m *MockMessageStore) Members(room string) []string {
	args := m.Called(room)
	return args.Get(0).([]string)
}
func (m *MockMessageStore) NumRooms() int {
	args := m.Called()
	return args.Int(0)
}
