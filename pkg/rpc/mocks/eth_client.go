package mocks

import (
	"context"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/mock"
)

// EthClient is a testify mock of rpc.EthClient.
type EthClient struct {
	mock.Mock
}

// NewEthClient creates a mock whose expectations are asserted when the test ends.
func NewEthClient(t interface {
	mock.TestingT
	Cleanup(func())
}) *EthClient {
	m := &EthClient{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

func (m *EthClient) Close() {
	m.Called()
}

func (m *EthClient) GetLogs(ctx context.Context, query ethereum.FilterQuery) ([]types.Log, error) {
	args := m.Called(ctx, query)
	logs, _ := args.Get(0).([]types.Log)
	return logs, args.Error(1)
}

func (m *EthClient) GetLatestBlockHeader(ctx context.Context) (*types.Header, error) {
	args := m.Called(ctx)
	header, _ := args.Get(0).(*types.Header)
	return header, args.Error(1)
}

func (m *EthClient) GetFinalizedBlockHeader(ctx context.Context) (*types.Header, error) {
	args := m.Called(ctx)
	header, _ := args.Get(0).(*types.Header)
	return header, args.Error(1)
}

func (m *EthClient) GetSafeBlockHeader(ctx context.Context) (*types.Header, error) {
	args := m.Called(ctx)
	header, _ := args.Get(0).(*types.Header)
	return header, args.Error(1)
}

func (m *EthClient) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNum *uint64) ([]byte, error) {
	args := m.Called(ctx, msg, blockNum)
	out, _ := args.Get(0).([]byte)
	return out, args.Error(1)
}
