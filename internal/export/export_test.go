package export

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	goption "google.golang.org/api/option"

	"paytrack/internal/core"
)

func samplePayments() []core.Payment {
	salary := core.NewPayment("Salary", 250000, false, "salary", core.NewDate(2025, 5, 1), "Main")
	food := core.NewPayment("Groceries", 5050, true, "food", core.NewDate(2025, 5, 3), "Cash")
	food.Description = "weekly shop"
	food.Tags = core.Tags{}.Set("store", "coop").Set("week", "18")
	return []core.Payment{food, salary}
}

func TestRowFormatting(t *testing.T) {
	rows := Rows(samplePayments())
	require.Len(t, rows, 3)
	assert.Equal(t, "Date", rows[0][0])

	assert.Equal(t, []any{"2025-05-03", "Groceries", "weekly shop", "food", "Cash", "expense", -50.5, "store=coop; week=18"}, rows[1])
	assert.Equal(t, "income", rows[2][5])
	assert.Equal(t, 2500.0, rows[2][6])

	b := Summarize(samplePayments())
	assert.Equal(t, int64(244950), b.TotalInCents)
	assert.Equal(t, int64(-5050), b.ExpensesInCents)
}

func TestXLSXExport(t *testing.T) {
	x := NewXLSXExporter()
	x.now = func() time.Time { return time.Date(2025, 5, 10, 9, 0, 0, 0, time.UTC) }
	assert.Equal(t, "paytrack_export_2025-05-10.xlsx", x.Filename())

	var buf bytes.Buffer
	require.NoError(t, x.Write(&buf, samplePayments()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Payments", "Summary"}, f.GetSheetList())

	name, err := f.GetCellValue("Payments", "B2")
	require.NoError(t, err)
	assert.Equal(t, "Groceries", name)

	total, err := f.GetCellValue("Summary", "A4")
	require.NoError(t, err)
	assert.Equal(t, "Total", total)
}

func TestXLSXWriteFileEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.xlsx")
	require.NoError(t, NewXLSXExporter().WriteFile(path, nil))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Payments")
	require.NoError(t, err)
	assert.Len(t, rows, 1, "header only")
}

func TestSheetsExport(t *testing.T) {
	var (
		mu      sync.Mutex
		methods []string
		written struct {
			Values [][]any `json:"values"`
		}
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		methods = append(methods, r.Method)
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		if strings.HasSuffix(r.URL.Path, ":clear") {
			_, _ = w.Write([]byte(`{"spreadsheetId":"sheet-1"}`))
			return
		}
		assert.Equal(t, "USER_ENTERED", r.URL.Query().Get("valueInputOption"))
		_ = json.Unmarshal(body, &written)
		_, _ = w.Write([]byte(`{"spreadsheetId":"sheet-1","updatedRange":"Payments!A1:H3"}`))
	}))
	defer srv.Close()

	exp, err := NewSheetsExporter(context.Background(),
		SheetsConfig{SpreadsheetID: "sheet-1"},
		goption.WithEndpoint(srv.URL), goption.WithoutAuthentication())
	require.NoError(t, err)

	rng, err := exp.Export(context.Background(), samplePayments())
	require.NoError(t, err)
	assert.Equal(t, "Payments!A1:H3", rng)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{http.MethodPost, http.MethodPut}, methods)
	require.Len(t, written.Values, 3)
	assert.Equal(t, "Groceries", written.Values[1][1])
}

func TestSheetsExporterRequiresCredentials(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	_, err := NewSheetsExporter(context.Background(), SheetsConfig{SpreadsheetID: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing service account credentials")

	_, err = NewSheetsExporter(context.Background(), SheetsConfig{})
	assert.Error(t, err)
}

func TestSheetsExporterOAuthCredentials(t *testing.T) {
	dir := t.TempDir()
	tokenFile := filepath.Join(dir, "token.json")
	require.NoError(t, os.WriteFile(tokenFile, []byte(`{"access_token":"test","token_type":"Bearer"}`), 0600))

	_, err := NewSheetsExporter(context.Background(), SheetsConfig{
		SpreadsheetID:   "x",
		OAuthClientJSON: "invalid-json",
		OAuthTokenFile:  tokenFile,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "oauth config")

	client := `{"installed":{"client_id":"id","client_secret":"secret","auth_uri":"https://accounts.example.com/auth","token_uri":"https://accounts.example.com/token","redirect_uris":["http://localhost"]}}`
	exp, err := NewSheetsExporter(context.Background(), SheetsConfig{
		SpreadsheetID:   "x",
		OAuthClientJSON: client,
		OAuthTokenFile:  tokenFile,
	})
	require.NoError(t, err)
	assert.NotNil(t, exp)

	_, err = NewSheetsExporter(context.Background(), SheetsConfig{
		SpreadsheetID:   "x",
		OAuthClientJSON: client,
		OAuthTokenFile:  filepath.Join(dir, "missing.json"),
	})
	assert.Error(t, err)
}
