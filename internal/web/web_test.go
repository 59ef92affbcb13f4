package web

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wzyjerry/stray-saver/internal/model"
)

func TestTemplatesParse(t *testing.T) {
	tmpl, err := Templates()
	require.NoError(t, err)

	for _, name := range []string{
		"index.html", "signup.html", "login.html", "submission_success.html",
		"submitted.html", "dashboard.html", "report.html", "error.html",
	} {
		assert.NotNil(t, tmpl.Lookup(name), name)
	}
}

func TestDashboardEscapesReportFields(t *testing.T) {
	tmpl, err := Templates()
	require.NoError(t, err)

	var buf bytes.Buffer
	err = tmpl.ExecuteTemplate(&buf, "dashboard.html", map[string]any{
		"Reports": []model.Report{{
			ID:            "id-1",
			Location:      "<script>alert(1)</script>",
			SeverityLevel: "high",
			Timestamp:     time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
		}},
	})
	require.NoError(t, err)
	assert.NotContains(t, buf.String(), "<script>alert(1)</script>")
	assert.Contains(t, buf.String(), "2024-05-01 10:00:00 UTC")
	assert.Contains(t, buf.String(), `href="/login"`)
}
