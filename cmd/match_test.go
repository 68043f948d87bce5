package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/dealflow-cli/internal/model"
)

func TestLoadMatchBuyers_FileReplacesStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "buyers.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
buyers:
  - id: b1
    name: Lone Star Capital
`), 0o644))

	st := &stubStore{buyers: []model.BuyerRecord{{ID: "stored", Name: "Stored Capital"}}}
	buyers, err := loadMatchBuyers(context.Background(), st, path)
	require.NoError(t, err)
	require.Len(t, buyers, 1)
	assert.Equal(t, "b1", buyers[0].ID)
	assert.Equal(t, 0, st.buyersCalls)
}

func TestLoadMatchBuyers_DefaultsToStore(t *testing.T) {
	st := &stubStore{buyers: []model.BuyerRecord{{ID: "stored", Name: "Stored Capital"}}}
	buyers, err := loadMatchBuyers(context.Background(), st, "")
	require.NoError(t, err)
	require.Len(t, buyers, 1)
	assert.Equal(t, "stored", buyers[0].ID)
	assert.Equal(t, 1, st.buyersCalls)
}
