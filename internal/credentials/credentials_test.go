package credentials

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"
	"workorder-invoicer/internal/components/chrono"

	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func TestSetGet(t *testing.T) {
	set := Set{
		ListURL:    "https://portal.example/aura",
		EntityName: "",
	}
	require.Equal(t, "https://portal.example/aura", set.Get(ListURL))
	require.Equal(t, "WorkOrder", set.Get(EntityName))
	require.Equal(t, "", set.Get(DetailToken))

	require.Equal(t, []string{DetailToken, Cookie}, set.Missing(DetailToken, ListURL, Cookie))
	err := set.Require(DetailToken, ListURL)
	require.ErrorIs(t, err, ErrCredentialMissing)
	require.ErrorContains(t, err, DetailToken)
	require.NoError(t, set.Require(ListURL, EntityName))

	n, err := set.Int(MaxWorkOrders)
	require.NoError(t, err)
	require.Equal(t, 5, n)

	_, err = Set{MaxWorkOrders: "five"}.Int(MaxWorkOrders)
	require.Error(t, err)
}

func TestSuggest(t *testing.T) {
	suggestion, ok := Suggest("AURA_TOKEN_PI")
	require.True(t, ok)
	require.Equal(t, SensitiveToken, suggestion)

	suggestion, ok = Suggest("aura_fwuid_header")
	require.True(t, ok)
	require.Equal(t, ListFWUID, suggestion)

	_, ok = Suggest("QQQQ")
	require.False(t, ok)
}

func TestRedact(t *testing.T) {
	require.Equal(t, "*****", Redact("short"))
	require.Equal(t, "abcdef...wxyz (26 chars)", Redact("abcdefghijklmnopqrstuvwxyz"))
}

func TestEnvFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), ".env")

	original := `# captured on monday
API_URL=https://portal.example/aura
export USER_AGENT="Mozilla/5.0 (X11)"

HEADER_COOKIE_STRING='sid=abc; BrowserId=xyz'
UNRELATED=keep me # trailing comment
`
	require.NoError(t, os.WriteFile(path, []byte(original), 0600))

	store := NewEnvFile(path)
	set, err := store.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, "https://portal.example/aura", set.Get(DetailURL))
	require.Equal(t, "Mozilla/5.0 (X11)", set.Get(UserAgent))
	require.Equal(t, "sid=abc; BrowserId=xyz", set.Get(Cookie))
	require.Equal(t, "keep me", set["UNRELATED"])

	err = store.Update(ctx, map[string]string{
		Cookie:      "sid=new; x='quoted'",
		DetailToken: "eyJ0eXAi.token",
		ListToken:   "plain",
	})
	require.NoError(t, err)

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, `# captured on monday
API_URL=https://portal.example/aura
export USER_AGENT="Mozilla/5.0 (X11)"

HEADER_COOKIE_STRING="sid=new; x='quoted'"
UNRELATED=keep me # trailing comment
AURA_TOKEN=eyJ0eXAi.token
AURA_TOKEN_HEADER=plain
`, string(contents))

	set, err = store.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, "sid=new; x='quoted'", set.Get(Cookie))
	require.Equal(t, "eyJ0eXAi.token", set.Get(DetailToken))
	require.Equal(t, "plain", set.Get(ListToken))

	// updating the same values again leaves the file as it is
	err = store.Update(ctx, map[string]string{ListToken: "plain"})
	require.NoError(t, err)
	again, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, string(contents), string(again))
}

func TestEnvFileDollarValues(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), ".env")
	store := NewEnvFile(path)

	updates := map[string]string{
		ListToken:   "tok$en",
		DetailToken: "it's $HOME",
	}
	require.NoError(t, store.Update(ctx, updates))

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "AURA_TOKEN=\"it's \\$HOME\"\nAURA_TOKEN_HEADER='tok$en'\n", string(contents))

	set, err := store.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, "tok$en", set.Get(ListToken))
	require.Equal(t, "it's $HOME", set.Get(DetailToken))
}

func TestEnvFileMissing(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), ".env")
	store := NewEnvFile(path)

	set, err := store.Load(ctx)
	require.NoError(t, err)
	require.Empty(t, set)

	require.NoError(t, store.Update(ctx, map[string]string{ListURL: "https://x"}))
	set, err = store.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, "https://x", set.Get(ListURL))
}

func TestSqliteStore(t *testing.T) {
	ctx := context.Background()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	defer db.Close()
	db.SetMaxOpenConns(1)
	_, err = db.Exec(Schema)
	require.NoError(t, err)

	store := NewSqliteStore(db, chrono.FixedImpl{At: time.Date(2025, time.October, 3, 10, 0, 0, 0, time.UTC)})

	set, err := store.Load(ctx)
	require.NoError(t, err)
	require.Empty(t, set)

	require.NoError(t, store.Update(ctx, map[string]string{ListToken: "one", Cookie: "sid=1"}))
	require.NoError(t, store.Update(ctx, map[string]string{ListToken: "two"}))

	set, err = store.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, Set{ListToken: "two", Cookie: "sid=1"}, set)
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	initial := map[string]string{ListToken: "a"}
	store := NewMemoryStore(initial)
	initial[ListToken] = "mutated"

	require.NoError(t, store.Update(ctx, map[string]string{Cookie: "c"}))
	set, err := store.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, Set{ListToken: "a", Cookie: "c"}, set)
}
