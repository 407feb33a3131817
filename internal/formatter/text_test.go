package formatter

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextFormatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewTextFormatter(&buf).Format(testSchema()))

	out := buf.String()
	assert.Contains(t, out, "TABLE public.orders (PK: id)\n")
	assert.Contains(t, out, "  id: BIGINT [id] NOT NULL\n")
	assert.Contains(t, out, "  total: NUMERIC(12,2) [money] NOT NULL DEFAULT 0\n")
	assert.Contains(t, out, "  placed_at: TIMESTAMPTZ [timestamp]\n")
	assert.Contains(t, out, "  email: TEXT [string] UNIQUE NOT NULL\n")
	assert.Less(t, strings.Index(out, "public.orders"), strings.Index(out, "auth.users"))
}

func TestMarkdownFormatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewMarkdownFormatter(&buf).Format(testSchema()))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "# Database Schema\n\n"))
	assert.Contains(t, out, "## public.orders\n")
	assert.Contains(t, out, "- **id:** `BIGINT` (id), primary key\n")
	assert.Contains(t, out, "- **total:** `NUMERIC(12,2)` (money), default `0`\n")
	assert.Contains(t, out, "- **email:** `TEXT` (string), unique\n")
	assert.Contains(t, out, "## Types\n")
	assert.Contains(t, out, "| timestamp | time.Time | TIMESTAMPTZ |  |  |\n")
}

func TestMultiFileFormatter(t *testing.T) {
	for _, format := range []string{FormatText, FormatMarkdown} {
		t.Run(format, func(t *testing.T) {
			dir := filepath.Join(t.TempDir(), "docs")
			require.NoError(t, NewMultiFileFormatter(dir, format).Format(testSchema()))

			ext := ".txt"
			if format == FormatMarkdown {
				ext = ".md"
			}
			for _, name := range []string{"_overview", "orders", "users"} {
				assert.FileExists(t, filepath.Join(dir, name+ext))
			}

			overview, err := os.ReadFile(filepath.Join(dir, "_overview"+ext))
			require.NoError(t, err)
			assert.Contains(t, string(overview), "orders")

			users, err := os.ReadFile(filepath.Join(dir, "users"+ext))
			require.NoError(t, err)
			assert.Contains(t, string(users), "email")
			assert.NotContains(t, string(users), "total")
		})
	}
}
