package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"NoteVault/internal/fault"
)

// TestHandlerExposesCollectors tests that recorded values reach the text output.
func TestHandlerExposesCollectors(t *testing.T) {
	m := New()

	m.Observe("transfer", time.Now(), nil)
	m.Observe("transfer", time.Now(), fault.Invariantf("missing note"))
	m.Notes(2, 1)
	m.Supply(50, 0)
	m.RegisterVerifier(func() (uint64, uint64) { return 3, 4 })

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	text := string(body)

	for _, want := range []string{
		`notevault_operations_total{operation="transfer",outcome="ok"} 1`,
		`notevault_operations_total{operation="transfer",outcome="invariant"} 1`,
		`notevault_notes_total{change="created"} 2`,
		`notevault_supply_units_total{direction="issued"} 50`,
		`notevault_verifier_cache_hits_total 3`,
		`notevault_verifier_cache_misses_total 4`,
	} {
		if !strings.Contains(text, want) {
			t.Errorf("missing %q", want)
		}
	}
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics

	m.Observe("mint", time.Now(), nil)
	m.Notes(1, 1)
	m.Supply(1, 1)
	m.RegisterVerifier(func() (uint64, uint64) { return 0, 0 })
}
