package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/JonMunkholm/personetl/internal/artifact"
	"github.com/JonMunkholm/personetl/internal/config"
	"github.com/JonMunkholm/personetl/internal/core"
	"github.com/JonMunkholm/personetl/internal/loader"
	"github.com/JonMunkholm/personetl/internal/store"
)

const feed = `Jane|Doe|Acme|01032000|75000|1 Main St|Carlton|VIC|3053|0390001111|0400111222|jane@example.com
John|Roe||01032000|75000|1 Main St|Carlton|VIC|3053|0390001111|0400111222|john@example.com

Mary|Major|Initech|15121990|120000|2 High St|Fitzroy|VIC|3065|0391112222|0411222333|mary@example.com
Bad|Date|Acme|31042024|75000|1 Main St|Carlton|VIC|3053|1|2|bad@example.com
`

type fakeCollection struct {
	docs []any
	err  error
}

func (c *fakeCollection) InsertOne(ctx context.Context, doc any) error {
	if c.err != nil {
		return c.err
	}
	c.docs = append(c.docs, doc)
	return nil
}

func (c *fakeCollection) InsertMany(ctx context.Context, docs []any) (int, error) {
	if c.err != nil {
		return 0, c.err
	}
	c.docs = append(c.docs, docs...)
	return len(docs), nil
}

type fakeStore struct {
	coll        *fakeCollection
	collections map[string]bool
	dialed      int
	closed      int
	connectErr  error
	gotOpts     store.Options
}

func newFakeStore() *fakeStore {
	return &fakeStore{coll: &fakeCollection{}, collections: map[string]bool{"people.members": true}}
}

func (s *fakeStore) connect(ctx context.Context, opts store.Options) (Store, error) {
	s.dialed++
	s.gotOpts = opts
	if s.connectErr != nil {
		return nil, s.connectErr
	}
	return s, nil
}

func (s *fakeStore) HasCollection(ctx context.Context, database, collection string) (bool, error) {
	return s.collections[database+"."+collection], nil
}

func (s *fakeStore) Target(database, collection string) loader.Inserter { return s.coll }

func (s *fakeStore) Close(ctx context.Context) error {
	s.closed++
	return nil
}

func testConfig(t *testing.T, input string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	in := filepath.Join(dir, "member-data.txt")
	if err := os.WriteFile(in, []byte(input), 0o644); err != nil {
		t.Fatal(err)
	}
	return &config.Config{
		File: config.FileConfig{
			Input:      in,
			Output:     filepath.Join(dir, "documents.json"),
			Quarantine: filepath.Join(dir, "skipped_rows.csv"),
			Delimiter:  "|",
		},
		Mongo:     config.MongoConfig{URL: "mongodb://localhost:27017", Username: "etl", Password: "pw", Timeout: time.Second},
		Database:  config.DatabaseConfig{Name: "people", Collection: "members"},
		Transform: config.TransformConfig{ReferenceDate: "2024-03-01"},
		Logging:   config.LoggingConfig{Level: "info", Format: "text"},
	}
}

func TestRun(t *testing.T) {
	cfg := testConfig(t, feed)
	fs := newFakeStore()

	rep, err := NewRunner(cfg, fs.connect).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if rep.Rows != 4 || rep.Documents != 2 || rep.Quarantined != 2 || rep.Inserted != 2 {
		t.Errorf("report = %+v, want 4 rows, 2 docs, 2 quarantined, 2 inserted", rep)
	}
	if rep.RunID == "" {
		t.Error("report has no run id")
	}
	if len(fs.coll.docs) != 2 {
		t.Errorf("inserted %d docs, want 2", len(fs.coll.docs))
	}
	if fs.closed != 1 {
		t.Errorf("store closed %d times, want 1", fs.closed)
	}
	if fs.gotOpts.Username != "etl" || fs.gotOpts.Timeout != time.Second {
		t.Errorf("store options = %+v", fs.gotOpts)
	}

	docs, err := artifact.ReadDocuments(cfg.File.Output)
	if err != nil {
		t.Fatalf("output artifact: %v", err)
	}
	if len(docs) != 2 || docs[0].FullName != "Jane Doe" || docs[1].SalaryBucket != "C" {
		t.Errorf("output = %+v", docs)
	}

	q, err := os.ReadFile(cfg.File.Quarantine)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(q)), "\n")
	if len(lines) != 3 {
		t.Fatalf("quarantine has %d lines, want header + 2:\n%s", len(lines), q)
	}
	if !strings.HasPrefix(lines[1], "1,null_field,") || !strings.HasPrefix(lines[2], "3,date_format,") {
		t.Errorf("quarantine rows = %q", lines[1:])
	}
}

func TestRun_Idempotent(t *testing.T) {
	cfg := testConfig(t, feed)
	r := NewRunner(cfg, newFakeStore().connect)

	if _, err := r.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	firstOut, _ := os.ReadFile(cfg.File.Output)
	firstQ, _ := os.ReadFile(cfg.File.Quarantine)

	if _, err := r.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	secondOut, _ := os.ReadFile(cfg.File.Output)
	secondQ, _ := os.ReadFile(cfg.File.Quarantine)

	if string(firstOut) != string(secondOut) {
		t.Error("output differs between runs")
	}
	if string(firstQ) != string(secondQ) {
		t.Error("quarantine differs between runs")
	}
}

func TestTransform_DoesNotDial(t *testing.T) {
	cfg := testConfig(t, feed)
	fs := newFakeStore()

	rep, err := NewRunner(cfg, fs.connect).Transform(context.Background())
	if err != nil {
		t.Fatalf("Transform() error = %v", err)
	}
	if fs.dialed != 0 {
		t.Errorf("store dialed %d times during transform", fs.dialed)
	}
	if rep.Documents != 2 {
		t.Errorf("Documents = %d, want 2", rep.Documents)
	}
	if _, err := os.Stat(cfg.File.Output); err != nil {
		t.Errorf("output not written: %v", err)
	}
}

func TestRun_AllRejectedSkipsStore(t *testing.T) {
	cfg := testConfig(t, "A|B|C\n")
	fs := newFakeStore()

	rep, err := NewRunner(cfg, fs.connect).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if rep.Documents != 0 || rep.Quarantined != 1 {
		t.Errorf("report = %+v", rep)
	}
	if fs.dialed != 0 {
		t.Errorf("store dialed for an empty batch")
	}
}

func TestRun_ExtractError(t *testing.T) {
	cfg := testConfig(t, feed)
	cfg.File.Input = filepath.Join(t.TempDir(), "absent.txt")

	_, err := NewRunner(cfg, newFakeStore().connect).Run(context.Background())
	if core.PhaseOf(err) != core.PhaseExtract || !errors.Is(err, core.ErrRead) {
		t.Fatalf("error = %v, want extract-phase ErrRead", err)
	}
}

func TestRun_QuarantineUnwritable(t *testing.T) {
	cfg := testConfig(t, feed)
	cfg.File.Quarantine = filepath.Join(t.TempDir(), "missing", "q.csv")

	_, err := NewRunner(cfg, newFakeStore().connect).Run(context.Background())
	if core.PhaseOf(err) != core.PhaseTransform || !errors.Is(err, core.ErrWrite) {
		t.Fatalf("error = %v, want transform-phase ErrWrite", err)
	}
}

func TestRun_ConnectionError(t *testing.T) {
	cfg := testConfig(t, feed)
	fs := newFakeStore()
	fs.connectErr = fmt.Errorf("%w: ping: server selection timeout", core.ErrConnection)

	_, err := NewRunner(cfg, fs.connect).Run(context.Background())
	if core.PhaseOf(err) != core.PhaseLoad || !errors.Is(err, core.ErrConnection) {
		t.Fatalf("error = %v, want load-phase ErrConnection", err)
	}

	// The artifact survives a failed load.
	if docs, err := artifact.ReadDocuments(cfg.File.Output); err != nil || len(docs) != 2 {
		t.Errorf("output after failed load = %d docs, %v", len(docs), err)
	}
}

func TestRun_ConfigErrorFromStoreKeepsPhase(t *testing.T) {
	cfg := testConfig(t, feed)
	fs := newFakeStore()
	fs.connectErr = core.NewPhaseError(core.PhaseConfig, "mongo", core.ErrConfig)

	_, err := NewRunner(cfg, fs.connect).Run(context.Background())
	if core.PhaseOf(err) != core.PhaseConfig {
		t.Fatalf("phase = %q, want config", core.PhaseOf(err))
	}
}

func TestRun_InsertError(t *testing.T) {
	cfg := testConfig(t, feed)
	fs := newFakeStore()
	fs.coll.err = fmt.Errorf("%w: duplicate key", core.ErrInsert)

	_, err := NewRunner(cfg, fs.connect).Run(context.Background())
	if core.PhaseOf(err) != core.PhaseLoad || !errors.Is(err, core.ErrInsert) {
		t.Fatalf("error = %v, want load-phase ErrInsert", err)
	}
	if fs.closed != 1 {
		t.Errorf("store not closed after failed insert")
	}
}

func TestLoad_Replay(t *testing.T) {
	cfg := testConfig(t, feed)
	fs := newFakeStore()
	r := NewRunner(cfg, fs.connect)

	if _, err := r.Transform(context.Background()); err != nil {
		t.Fatal(err)
	}
	rep, err := r.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if rep.Inserted != 2 || len(fs.coll.docs) != 2 {
		t.Errorf("inserted %d (%d stored), want 2", rep.Inserted, len(fs.coll.docs))
	}
}

func TestLoad_SingleObjectArtifact(t *testing.T) {
	cfg := testConfig(t, feed)
	body := `{
  "FullName": "Jane Doe",
  "Company": "Acme",
  "BirthDate": "01/03/2000",
  "Age": 24,
  "Salary": "$75,000.00",
  "SalaryBucket": "B",
  "Address": {"street": "1 Main St", "suburb": "Carlton", "state": "VIC", "post_code": "3053"},
  "Phone": "0390001111",
  "Mobile": "0400111222",
  "Email": "jane@example.com"
}`
	if err := os.WriteFile(cfg.File.Output, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	fs := newFakeStore()

	rep, err := NewRunner(cfg, fs.connect).Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if rep.Inserted != 1 {
		t.Errorf("Inserted = %d, want 1", rep.Inserted)
	}
}

func TestLoad_RejectsIncompleteDocuments(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantDoc string
	}{
		{"empty object", `[{},{"Age":3}]`, "document 0"},
		{"missing address", `{"FullName":"Jane Doe","Company":"Acme","BirthDate":"01/03/2000","Salary":"$1.00","SalaryBucket":"A","Phone":"1","Mobile":"2","Email":"e"}`, "document 0"},
		{"bad bucket second", `[
			{"FullName":"A B","Company":"C","BirthDate":"01/03/2000","Salary":"$1.00","SalaryBucket":"A","Address":{"street":"s","suburb":"b","state":"S","post_code":"1"},"Phone":"1","Mobile":"2","Email":"e"},
			{"FullName":"A B","Company":"C","BirthDate":"01/03/2000","Salary":"$1.00","SalaryBucket":"Z","Address":{"street":"s","suburb":"b","state":"S","post_code":"1"},"Phone":"1","Mobile":"2","Email":"e"}
		]`, "document 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t, feed)
			if err := os.WriteFile(cfg.File.Output, []byte(tt.body), 0o644); err != nil {
				t.Fatal(err)
			}
			fs := newFakeStore()

			rep, err := NewRunner(cfg, fs.connect).Load(context.Background())
			if core.PhaseOf(err) != core.PhaseLoad || !errors.Is(err, core.ErrDocument) {
				t.Fatalf("error = %v, want load-phase ErrDocument", err)
			}
			if !strings.Contains(err.Error(), cfg.File.Output) || !strings.Contains(err.Error(), tt.wantDoc) {
				t.Errorf("error should name the artifact and %s: %v", tt.wantDoc, err)
			}
			if code := core.MapError(err).Code; code != "ROW006" {
				t.Errorf("code = %q, want ROW006", code)
			}
			if fs.dialed != 0 || rep.Inserted != 0 {
				t.Errorf("dialed %d times, inserted %d; want nothing", fs.dialed, rep.Inserted)
			}
		})
	}
}

func TestLoad_MissingArtifact(t *testing.T) {
	cfg := testConfig(t, feed)
	_, err := NewRunner(cfg, newFakeStore().connect).Load(context.Background())
	if core.PhaseOf(err) != core.PhaseLoad || !errors.Is(err, core.ErrRead) {
		t.Fatalf("error = %v, want load-phase ErrRead", err)
	}
}
