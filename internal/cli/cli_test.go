package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"carpool/internal/calculator"
	"carpool/internal/core"
	"carpool/internal/log"
	"carpool/internal/remote"
)

// setupEnv points the configuration at a fresh sqlite file.
func setupEnv(t *testing.T) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "carpool.db")
	t.Setenv("LOCAL_BACKEND", "sqlite")
	t.Setenv("SQLITE_DB_PATH", dbPath)
	t.Setenv("REMOTE_BACKEND", "none")
	t.Setenv("LEDGER_OWNER", "")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("LOG_FORMAT", "json")
	return dbPath
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := NewRootCommand()
	root.SetArgs(append([]string{"--env-file", ""}, args...))
	root.SetOut(&out)
	root.SetErr(io.Discard)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func testApp(t *testing.T) *app {
	t.Helper()
	cfg, err := LoadAndValidateConfig()
	if err != nil {
		t.Fatalf("LoadAndValidateConfig() error = %v", err)
	}
	return &app{cfg: cfg, logger: log.Discard()}
}

// seedLedger writes one traveller with two trips and a payment.
func seedLedger(t *testing.T) {
	t.Helper()
	l, err := OpenLedger(testApp(t).cfg, log.Discard())
	if err != nil {
		t.Fatalf("OpenLedger() error = %v", err)
	}
	defer l.Cleanup()

	s := l.Store
	if err := s.SetDateRange(core.DateRange{Start: "2025-03-01", End: "2025-03-31"}); err != nil {
		t.Fatal(err)
	}
	if err := s.SetRatePerTrip(core.NewMoney(2)); err != nil {
		t.Fatal(err)
	}
	tr, err := s.AddTraveller("Alice")
	if err != nil {
		t.Fatal(err)
	}
	if err := s.UpdateTravellerTrip("2025-03-03", tr.ID, true, true); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddCashPayment(core.CashPayment{TravellerID: tr.ID, Amount: core.NewMoney(1), Date: "2025-03-04"}); err != nil {
		t.Fatal(err)
	}
}

func balanceSummary(t *testing.T) calculator.Summary {
	t.Helper()
	out, err := execute(t, "balance", "--format", "json")
	if err != nil {
		t.Fatalf("balance error = %v", err)
	}
	var s calculator.Summary
	if err := json.Unmarshal([]byte(out), &s); err != nil {
		t.Fatalf("decode balance output: %v\n%s", err, out)
	}
	return s
}

func TestBalanceCommand(t *testing.T) {
	setupEnv(t)
	seedLedger(t)

	s := balanceSummary(t)
	if len(s.Travellers) != 1 {
		t.Fatalf("got %d travellers, want 1", len(s.Travellers))
	}
	tb := s.Travellers[0]
	if tb.TotalTrips != 2 {
		t.Errorf("TotalTrips = %d, want 2", tb.TotalTrips)
	}
	if !tb.Balance.Balance.Same(core.NewMoney(3)) {
		t.Errorf("Balance = %s, want 3", tb.Balance.Balance.Format())
	}
	if tb.Status != calculator.StatusDue {
		t.Errorf("Status = %s, want %s", tb.Status, calculator.StatusDue)
	}

	table, err := execute(t, "balance")
	if err != nil {
		t.Fatalf("balance table error = %v", err)
	}
	for _, want := range []string{"TRAVELLER", "Alice", "3.00", "due", "2025-03-01 .. 2025-03-31"} {
		if !strings.Contains(table, want) {
			t.Errorf("table output missing %q:\n%s", want, table)
		}
	}

	// A range without the trip day leaves only the payment.
	out, err := execute(t, "balance", "--format", "json", "--start", "2025-03-04", "--end", "2025-03-10")
	if err != nil {
		t.Fatalf("ranged balance error = %v", err)
	}
	var ranged calculator.Summary
	if err := json.Unmarshal([]byte(out), &ranged); err != nil {
		t.Fatal(err)
	}
	if got := ranged.Travellers[0]; got.TotalTrips != 0 || got.Status != calculator.StatusOverpaid {
		t.Errorf("ranged balance = %+v, want no trips and overpaid", got)
	}

	if _, err := execute(t, "balance", "--start", "2025-03-10", "--end", "2025-03-01"); err == nil {
		t.Error("expected error for inverted range")
	}
	if _, err := execute(t, "balance", "--format", "xml"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestBackupExportResetImport(t *testing.T) {
	setupEnv(t)
	seedLedger(t)
	file := filepath.Join(t.TempDir(), "ledger-backup.json")

	out, err := execute(t, "backup", "export", "-o", file)
	if err != nil {
		t.Fatalf("export error = %v", err)
	}
	if !strings.Contains(out, file) {
		t.Errorf("export output = %q, want path", out)
	}
	if _, err := os.Stat(file); err != nil {
		t.Fatalf("backup file not written: %v", err)
	}

	if _, err := execute(t, "reset"); err == nil {
		t.Fatal("reset without --yes should fail")
	}
	if got := len(balanceSummary(t).Travellers); got != 1 {
		t.Fatalf("unconfirmed reset removed travellers: got %d", got)
	}

	if _, err := execute(t, "reset", "--yes"); err != nil {
		t.Fatalf("reset error = %v", err)
	}
	if got := len(balanceSummary(t).Travellers); got != 0 {
		t.Fatalf("after reset got %d travellers, want 0", got)
	}

	out, err = execute(t, "backup", "import", file)
	if err != nil {
		t.Fatalf("import error = %v", err)
	}
	if !strings.Contains(out, "1 travellers, 1 payments") {
		t.Errorf("import output = %q", out)
	}
	s := balanceSummary(t)
	if len(s.Travellers) != 1 || s.TotalTrips != 2 {
		t.Errorf("restored ledger = %+v, want one traveller with two trips", s)
	}
}

func TestBackupExportStdout(t *testing.T) {
	setupEnv(t)
	seedLedger(t)

	out, err := execute(t, "backup", "export", "-o", "-")
	if err != nil {
		t.Fatalf("export error = %v", err)
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("stdout backup is not JSON: %v", err)
	}
	for _, key := range []string{"version", "timestamp", "ledgerState"} {
		if _, ok := doc[key]; !ok {
			t.Errorf("backup missing %q", key)
		}
	}
}

func TestBackupImportRejectsMalformedFile(t *testing.T) {
	setupEnv(t)
	file := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(file, []byte(`{"version":1}`), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := execute(t, "backup", "import", file); err == nil {
		t.Error("expected error for backup without ledger state")
	}
	if _, err := execute(t, "backup", "import"); err == nil {
		t.Error("expected error without file argument")
	}
}

func TestPullCommand(t *testing.T) {
	t.Run("no remote", func(t *testing.T) {
		setupEnv(t)
		t.Setenv("LEDGER_OWNER", "")
		_, err := execute(t, "pull", "--owner", "alice")
		if err == nil || !strings.Contains(err.Error(), "no remote backend") {
			t.Errorf("error = %v, want no remote backend", err)
		}
	})

	t.Run("no owner", func(t *testing.T) {
		setupEnv(t)
		_, err := execute(t, "pull")
		if err == nil || !strings.Contains(err.Error(), "no ledger owner") {
			t.Errorf("error = %v, want no ledger owner", err)
		}
	})

	t.Run("memory remote", func(t *testing.T) {
		setupEnv(t)
		t.Setenv("REMOTE_BACKEND", "memory")
		t.Setenv("LEDGER_OWNER", "alice")
		out, err := execute(t, "pull")
		if err != nil {
			t.Fatalf("pull error = %v", err)
		}
		if !strings.Contains(out, "Pulled alice: remote version 0") {
			t.Errorf("output = %q", out)
		}
	})
}

func TestInvalidConfiguration(t *testing.T) {
	setupEnv(t)
	t.Setenv("LOCAL_BACKEND", "postgres")

	_, err := execute(t, "balance")
	if err == nil || !strings.Contains(err.Error(), "configuration validation failed") {
		t.Errorf("error = %v, want configuration validation failure", err)
	}
}

func TestLoadEnvFile(t *testing.T) {
	if err := LoadEnvFile(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Errorf("missing env file should be ignored, got %v", err)
	}

	path := filepath.Join(t.TempDir(), "test.env")
	if err := os.WriteFile(path, []byte("CARPOOL_TEST_VALUE=from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CARPOOL_TEST_VALUE", "")
	os.Unsetenv("CARPOOL_TEST_VALUE")
	if err := LoadEnvFile(path); err != nil {
		t.Fatalf("LoadEnvFile() error = %v", err)
	}
	if got := os.Getenv("CARPOOL_TEST_VALUE"); got != "from-file" {
		t.Errorf("CARPOOL_TEST_VALUE = %q, want from-file", got)
	}
}

func TestNewServiceWiring(t *testing.T) {
	setupEnv(t)
	t.Setenv("REMOTE_BACKEND", "memory")
	t.Setenv("LEDGER_OWNER", "alice")

	svc, err := newService(context.Background(), testApp(t))
	if err != nil {
		t.Fatalf("newService() error = %v", err)
	}
	defer svc.close()

	if svc.coord == nil {
		t.Fatal("expected a sync coordinator for the memory remote")
	}
	if svc.broker != nil {
		t.Error("no broker expected without AMQP_URL")
	}
	if svc.local.Pinger == nil {
		t.Error("sqlite backend should be pingable")
	}
	if err := remoteCheck(svc.remote)(context.Background()); err != nil {
		t.Errorf("remote check error = %v", err)
	}
}

func TestNewServiceWithoutRemote(t *testing.T) {
	setupEnv(t)

	svc, err := newService(context.Background(), testApp(t))
	if err != nil {
		t.Fatalf("newService() error = %v", err)
	}
	defer svc.close()

	if svc.coord != nil {
		t.Error("no coordinator expected without a remote")
	}
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return remote.ErrUnavailable }

func TestServiceRunStopsOnCancel(t *testing.T) {
	setupEnv(t)
	t.Setenv("REMOTE_BACKEND", "memory")
	t.Setenv("LEDGER_OWNER", "alice")
	t.Setenv("PORT", strconv.Itoa(freePort(t)))

	svc, err := newService(context.Background(), testApp(t))
	if err != nil {
		t.Fatalf("newService() error = %v", err)
	}
	defer svc.close()

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- svc.run(ctx) }()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("run() error = %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("run did not return after cancellation")
	}
	if svc.coord.IsRunning() {
		t.Error("coordinator still running after shutdown")
	}
	if st := svc.coord.State(); st.Owner != "alice" {
		t.Errorf("owner = %q, want alice", st.Owner)
	}
}

func TestRemoteCheckUsesPinger(t *testing.T) {
	setupEnv(t)
	t.Setenv("REMOTE_BACKEND", "memory")
	t.Setenv("LEDGER_OWNER", "alice")

	svc, err := newService(context.Background(), testApp(t))
	if err != nil {
		t.Fatal(err)
	}
	defer svc.close()

	svc.remote.Pinger = failingPinger{}
	if err := remoteCheck(svc.remote)(context.Background()); !errors.Is(err, remote.ErrUnavailable) {
		t.Errorf("remote check error = %v, want ErrUnavailable", err)
	}
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}
