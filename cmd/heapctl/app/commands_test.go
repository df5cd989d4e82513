package app

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/go-faster/jx"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	t  *testing.T
	fs afero.Fs
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	t.Setenv("HEAPDB_ENVIRONMENT", "prod")

	return &harness{t: t, fs: afero.NewMemMapFs()}
}

func (h *harness) exec(stdin string, args ...string) (string, error) {
	h.t.Helper()

	root := newRootCommand(h.fs)

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{"--data-dir", "/data"}, args...))

	err := root.Execute(context.Background())

	return out.String(), err
}

func (h *harness) mustExec(args ...string) string {
	h.t.Helper()

	out, err := h.exec("", args...)
	require.NoError(h.t, err, out)

	return out
}

func TestCLI_InsertScanDelete(t *testing.T) {
	h := newHarness(t)

	h.mustExec("create", "people")

	out := h.mustExec("insert", "people", "alice", "bob", "carol")
	assert.Equal(t, 3, strings.Count(out, "\n"))

	assert.Equal(t, "3\n", h.mustExec("count", "people"))

	out = h.mustExec("scan", "people", "--value", "bob")
	assert.Equal(t, 1, strings.Count(out, "\n"))
	assert.Contains(t, out, `"bob"`)

	out = h.mustExec("scan", "people", "--value", "b", "--op", ">=", "--length", "1")
	assert.Contains(t, out, `"bob"`)
	assert.Contains(t, out, `"carol"`)
	assert.NotContains(t, out, `"alice"`)

	_, err := h.exec("", "delete", "people")
	require.Error(t, err)

	assert.Equal(t, "deleted 1 records\n", h.mustExec("delete", "people", "--value", "alice"))
	assert.Equal(t, "2\n", h.mustExec("count", "people"))

	assert.Equal(t, "deleted 2 records\n", h.mustExec("delete", "people", "--all"))
	assert.Equal(t, "0\n", h.mustExec("count", "people"))
}

func TestCLI_IntegerFilter(t *testing.T) {
	h := newHarness(t)

	h.mustExec("create", "nums")
	// little-endian int32 values 1, 42, 7, 42
	h.mustExec("insert", "nums", "--hex", "01000000", "2a000000", "07000000", "2a000000")

	out := h.mustExec("scan", "nums", "--hex", "--type", "integer", "--value", "42")
	assert.Equal(t, 2, strings.Count(out, "2a000000"))

	out = h.mustExec("scan", "nums", "--hex", "--type", "int", "--op", "<", "--value", "10")
	assert.Contains(t, out, "01000000")
	assert.Contains(t, out, "07000000")
	assert.NotContains(t, out, "2a000000")

	_, err := h.exec("", "scan", "nums", "--type", "integer", "--length", "8", "--value", "1")
	require.Error(t, err)
}

func TestCLI_LoadFromStdin(t *testing.T) {
	h := newHarness(t)

	h.mustExec("create", "lines")

	var input strings.Builder
	for i := 0; i < 1000; i++ {
		input.WriteString(strings.Repeat("x", 10+i%20))
		input.WriteString("\n")
	}

	out, err := h.exec(input.String(), "load", "lines", "--buffer", "4")
	require.NoError(t, err)
	assert.Equal(t, "loaded 1000 records into lines\n", out)

	assert.Equal(t, "1000\n", h.mustExec("count", "lines"))
}

func TestCLI_LoadFromFile(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, afero.WriteFile(h.fs, "/input.txt", []byte("a\nb\n"), 0o600))

	h.mustExec("create", "f")
	assert.Equal(t, "loaded 2 records into f\n", h.mustExec("load", "f", "/input.txt"))
}

func TestCLI_StatJSON(t *testing.T) {
	h := newHarness(t)

	h.mustExec("create", "s")
	h.mustExec("insert", "s", "one", "two")

	out := h.mustExec("stat", "s", "--json")

	var (
		name    string
		records int
		pages   int
	)
	err := jx.DecodeStr(out).Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "name":
			name, err = d.Str()
		case "records":
			records, err = d.Int()
		case "pages":
			pages, err = d.Int()
		default:
			err = d.Skip()
		}

		return err
	})
	require.NoError(t, err)

	assert.Equal(t, "s", name)
	assert.Equal(t, 2, records)
	assert.Equal(t, 1, pages)
}

func TestCLI_Check(t *testing.T) {
	h := newHarness(t)

	h.mustExec("create", "a", "b", "c")
	h.mustExec("insert", "b", "record")

	out := h.mustExec("check")
	assert.Contains(t, out, "a: ok (1 pages, 0 records)")
	assert.Contains(t, out, "b: ok (1 pages, 1 records)")
	assert.Contains(t, out, "c: ok")

	out, err := h.exec("", "check", "a", "missing")
	require.ErrorIs(t, err, errCheckFailed)
	assert.Contains(t, out, "missing: error:")
}

func TestCLI_CreateTwice(t *testing.T) {
	h := newHarness(t)

	h.mustExec("create", "dup")

	_, err := h.exec("", "create", "dup")
	require.Error(t, err)

	h.mustExec("destroy", "dup")
	h.mustExec("create", "dup")
}
