package leads

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BerylCAtieno/radiant-launch-agent/internal/models"
)

func newToolServer(t *testing.T, handle func(params toolCallParams) (any, *rpcError)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			JSONRPC string         `json:"jsonrpc"`
			ID      int64          `json:"id"`
			Method  string         `json:"method"`
			Params  toolCallParams `json:"params"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "2.0", req.JSONRPC)
		assert.Equal(t, "tools/call", req.Method)

		result, rpcErr := handle(req.Params)
		resp := map[string]any{"jsonrpc": "2.0", "id": req.ID}
		if rpcErr != nil {
			resp["error"] = rpcErr
		} else {
			resp["result"] = result
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func TestMCPStore_PullStructuredContent(t *testing.T) {
	srv := newToolServer(t, func(p toolCallParams) (any, *rpcError) {
		assert.Equal(t, toolPullContacts, p.Name)
		assert.Equal(t, "dental", p.Arguments["filter"])
		return map[string]any{
			"structuredContent": map[string]any{
				"contacts": []map[string]any{
					{"email": "a@x.com", "name": "dental patient"},
					{"email": "b@y.com", "name": "ortho"},
				},
			},
		}, nil
	})
	defer srv.Close()

	store := NewMCPStore(srv.URL, time.Second)
	got, err := store.Pull(context.Background(), "dental")

	require.NoError(t, err)
	assert.Equal(t, []models.Lead{{"email": "a@x.com", "name": "dental patient"}}, got)
}

func TestMCPStore_PullTextContent(t *testing.T) {
	srv := newToolServer(t, func(p toolCallParams) (any, *rpcError) {
		return map[string]any{
			"content": []map[string]any{
				{"type": "text", "text": `[{"email":"a@x.com"},{"email":"b@y.com"}]`},
			},
		}, nil
	})
	defer srv.Close()

	got, err := NewMCPStore(srv.URL, time.Second).Pull(context.Background(), "")

	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestMCPStore_Errors(t *testing.T) {
	t.Run("rpc error", func(t *testing.T) {
		srv := newToolServer(t, func(p toolCallParams) (any, *rpcError) {
			return nil, &rpcError{Code: -32601, Message: "Method not found"}
		})
		defer srv.Close()

		_, err := NewMCPStore(srv.URL, time.Second).Pull(context.Background(), "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Method not found")
	})

	t.Run("tool error", func(t *testing.T) {
		srv := newToolServer(t, func(p toolCallParams) (any, *rpcError) {
			return map[string]any{
				"isError": true,
				"content": []map[string]any{{"type": "text", "text": "quota exceeded"}},
			}, nil
		})
		defer srv.Close()

		err := NewMCPStore(srv.URL, time.Second).Push(context.Background(), models.Lead{"email": "a@x.com"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "quota exceeded")
	})

	t.Run("http status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusBadGateway)
		}))
		defer srv.Close()

		_, err := NewMCPStore(srv.URL, time.Second).Pull(context.Background(), "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "502")
	})

	t.Run("no contact list", func(t *testing.T) {
		srv := newToolServer(t, func(p toolCallParams) (any, *rpcError) {
			return map[string]any{"content": []map[string]any{{"type": "text", "text": "5 leads"}}}, nil
		})
		defer srv.Close()

		_, err := NewMCPStore(srv.URL, time.Second).Pull(context.Background(), "")
		assert.Error(t, err)
	})
}

func TestMCPStore_Push(t *testing.T) {
	var pushed map[string]any
	srv := newToolServer(t, func(p toolCallParams) (any, *rpcError) {
		assert.Equal(t, toolPushLead, p.Name)
		pushed = p.Arguments
		return map[string]any{"content": []map[string]any{{"type": "text", "text": "ok"}}}, nil
	})
	defer srv.Close()

	err := NewMCPStore(srv.URL, time.Second).Push(context.Background(), models.Lead{"email": "new@test.com"})

	require.NoError(t, err)
	assert.Equal(t, "new@test.com", pushed["email"])
}

func TestPostgresStore_Pull(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"data"}).
		AddRow([]byte(`{"email":"a@x.com","name":"dental patient"}`)).
		AddRow([]byte(`{"email":"b@y.com","name":"ortho"}`)).
		AddRow([]byte(`{"email":"c@z.com","name":"Dental again"}`))
	mock.ExpectQuery(`SELECT data FROM leads ORDER BY id`).WillReturnRows(rows)

	store := &PostgresStore{DB: db}
	got, err := store.Pull(context.Background(), "DENTAL")

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a@x.com", got[0].Email())
	assert.Equal(t, "c@z.com", got[1].Email())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Push(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO leads \(data\) VALUES \(\$1\)`).
		WithArgs([]byte(`{"email":"new@test.com"}`)).
		WillReturnResult(sqlmock.NewResult(1, 1))

	store := &PostgresStore{DB: db}
	require.NoError(t, store.Push(context.Background(), models.Lead{"email": "new@test.com"}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_QueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT data FROM leads`).WillReturnError(errors.New("connection refused"))

	_, err = (&PostgresStore{DB: db}).Pull(context.Background(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestPostgresStore_EnsureSchema(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS leads`).WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, (&PostgresStore{DB: db}).EnsureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
