package graphstore

import (
	"context"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/agenthands/inquest/internal/driver"
)

type MockDriver struct {
	Queries     []string
	QueryParams []map[string]any
	Results     map[string]neo4j.EagerResult
	Written     [][]driver.Statement
	Err         error
}

func (m *MockDriver) ExecuteQuery(ctx context.Context, query string, params map[string]any) (neo4j.EagerResult, error) {
	m.Queries = append(m.Queries, query)
	m.QueryParams = append(m.QueryParams, params)
	if m.Err != nil {
		return neo4j.EagerResult{}, m.Err
	}
	return m.Results[query], nil
}

func (m *MockDriver) ExecuteWrite(ctx context.Context, statements []driver.Statement) error {
	if m.Err != nil {
		return m.Err
	}
	m.Written = append(m.Written, statements)
	return nil
}

func (m *MockDriver) BuildIndices(ctx context.Context) error {
	return nil
}

func (m *MockDriver) Close(ctx context.Context) error {
	return nil
}
