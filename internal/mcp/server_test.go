package mcp

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biosim/geocap/internal/application"
	"github.com/biosim/geocap/internal/config"
)

func connect(t *testing.T) (*mcp.ClientSession, *application.App) {
	t.Helper()
	t.Setenv("GEOCAP_DIR", t.TempDir())
	cfg := config.Default()
	cfg.Database.Path = ":memory:"

	app, err := application.Open(cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })

	ctx := context.Background()
	clientTransport, serverTransport := mcp.NewInMemoryTransports()

	serverSession, err := NewServer(app, "test").Connect(ctx, serverTransport)
	require.NoError(t, err)
	t.Cleanup(func() { _ = serverSession.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "test"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })

	return session, app
}

func call[T any](t *testing.T, session *mcp.ClientSession, name string, args map[string]any) T {
	t.Helper()
	res, err := session.CallTool(context.Background(), &mcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	require.False(t, res.IsError, "tool %s failed: %+v", name, res.Content)

	raw, err := json.Marshal(res.StructuredContent)
	require.NoError(t, err)
	var out T
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func callFails(t *testing.T, session *mcp.ClientSession, name string, args map[string]any) {
	t.Helper()
	res, err := session.CallTool(context.Background(), &mcp.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		return
	}
	assert.True(t, res.IsError, "expected %s to fail", name)
}

func TestToolsAreRegistered(t *testing.T) {
	session, _ := connect(t)

	res, err := session.ListTools(context.Background(), nil)
	require.NoError(t, err)

	var names []string
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{
		"parent_create", "parent_list",
		"capture_take", "capture_list", "capture_info", "capture_delete",
	}, names)
}

func TestCaptureWorkflow(t *testing.T) {
	session, _ := connect(t)

	p := call[ParentOutput](t, session, "parent_create", map[string]any{
		"kind": "inspection", "category": "mite", "label": "aphids", "crop": "tomato",
	})
	assert.Positive(t, p.ID)
	assert.Equal(t, "mite", p.Category)

	img := filepath.Join(t.TempDir(), "IMG_0001.jpg")
	require.NoError(t, os.WriteFile(img, []byte("jpeg"), 0o600))

	rec := call[RecordOutput](t, session, "capture_take", map[string]any{
		"parentId": p.ID, "note": "row 3", "importPath": img,
	})
	assert.Equal(t, p.ID, rec.ParentID)
	assert.Nil(t, rec.Latitude, "no location source configured")
	assert.FileExists(t, rec.MediaRef)

	list := call[CaptureListOutput](t, session, "capture_list", map[string]any{"parentId": p.ID})
	require.Len(t, list.Captures, 1)
	assert.Equal(t, "row 3", list.Captures[0].Note)

	parents := call[ParentListOutput](t, session, "parent_list", map[string]any{})
	require.Len(t, parents.Parents, 1)
	assert.Equal(t, int64(1), parents.Parents[0].Captures)

	info := call[CaptureInfoOutput](t, session, "capture_info", map[string]any{"id": rec.ID})
	assert.True(t, info.MediaExists)
	assert.Equal(t, "aphids", info.Parent.Label)

	call[DeleteOutput](t, session, "capture_delete", map[string]any{"id": rec.ID})
	assert.NoFileExists(t, rec.MediaRef)
	callFails(t, session, "capture_delete", map[string]any{"id": rec.ID})
}

func TestToolErrors(t *testing.T) {
	session, _ := connect(t)

	callFails(t, session, "parent_create", map[string]any{"kind": "harvest", "label": "x"})
	callFails(t, session, "parent_create", map[string]any{"kind": "inspection", "category": "harvest", "label": "x"})
	callFails(t, session, "capture_list", map[string]any{"parentId": 404})
	callFails(t, session, "capture_info", map[string]any{"id": 404})

	p := call[ParentOutput](t, session, "parent_create", map[string]any{"kind": "finding", "label": "leaf spot"})
	callFails(t, session, "capture_take", map[string]any{"parentId": p.ID})
}
