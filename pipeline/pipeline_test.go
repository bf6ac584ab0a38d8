package pipeline

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/NVIDIA/dprofile/config"
	"github.com/NVIDIA/dprofile/core"
	"github.com/NVIDIA/dprofile/jsonprofile"
)

func TestPipeline(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "pipeline suite")
}

// memWorkspace allocates spill scratch files under a per-test temp dir.
type memWorkspace struct {
	dir string
	n   int
}

func newMemWorkspace() *memWorkspace {
	dir, err := os.MkdirTemp("", "dprofile-pipeline-test-*")
	Expect(err).NotTo(HaveOccurred())
	return &memWorkspace{dir: dir}
}

func (w *memWorkspace) SpillPath(column, kind string) (string, error) {
	w.n++
	return filepath.Join(w.dir, column+"_"+kind+"_"+strconv.Itoa(w.n)+".db"), nil
}

// memAudit records every appended event for assertions, with no PII
// discipline to verify beyond "never carries a field value" (field maps
// here only ever carry counts/codes in production call sites).
type memAudit struct {
	events []auditEvent
}

type auditEvent struct {
	runID string
	code  string
	feats map[string]any
}

func (a *memAudit) Append(runID, code string, fields map[string]any) {
	a.events = append(a.events, auditEvent{runID, code, fields})
}

// stringOpener hands out a fresh reader over the same in-memory CSV text
// every time it's called, letting the pipeline re-scan without ever
// touching a real file.
func stringOpener(data string) Opener {
	return func() (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader(data)), nil
	}
}

var _ = Describe("Pipeline.Ingest", func() {
	var (
		p     Pipeline
		ws    *memWorkspace
		audit *memAudit
		ctx   context.Context
	)

	BeforeEach(func() {
		p = New(config.Defaults())
		ws = newMemWorkspace()
		audit = &memAudit{}
		ctx = context.Background()
	})

	It("completes a clean well-formed CSV and infers types", func() {
		data := "id,amount,signup_date,name\n" +
			"1,19.99,2023-01-01,alice\n" +
			"2,29.99,2023-02-15,bob\n" +
			"3,39.99,2023-03-20,carol\n"

		run := p.CreateRun(core.NewDialect(core.Comma, false))
		err := p.Ingest(ctx, run, stringOpener(data), ws, audit)
		Expect(err).NotTo(HaveOccurred())

		snap := p.Status(run)
		Expect(snap.State).To(Equal(core.Completed))
		Expect(snap.ProgressPct).To(Equal(100))
		Expect(snap.Header.Names).To(Equal([]string{"id", "amount", "signup_date", "name"}))

		profiles := p.Profiles(run)
		Expect(profiles).To(HaveKey("amount"))
		Expect(profiles["amount"].Numeric).NotTo(BeNil())

		doc := jsonprofile.Build(run, snap.Header, 3, ',', profiles, p.SuggestKeys(run))
		Expect(doc.RunID).To(Equal(run.ID()))
		Expect(doc.Columns).To(HaveLen(4))

		_, err = jsonprofile.Marshal(doc)
		Expect(err).NotTo(HaveOccurred())
	})

	It("fails the run on invalid UTF-8 without running later stages", func() {
		data := "id,name\n1,\xff\xfe\n"
		run := p.CreateRun(core.NewDialect(core.Comma, false))
		err := p.Ingest(ctx, run, stringOpener(data), ws, audit)
		Expect(err).NotTo(HaveOccurred())

		snap := p.Status(run)
		Expect(snap.State).To(Equal(core.Failed))
		found := false
		for _, d := range snap.Errors {
			if d.Code == "E_UTF8_INVALID" {
				found = true
			}
		}
		Expect(found).To(BeTrue())
	})

	It("fails the run on an empty file", func() {
		run := p.CreateRun(core.NewDialect(core.Comma, false))
		err := p.Ingest(ctx, run, stringOpener(""), ws, audit)
		Expect(err).NotTo(HaveOccurred())
		Expect(p.Status(run).State).To(Equal(core.Failed))
	})

	It("fails the run on an uncorrectable jagged row", func() {
		data := "a,b,c\n1,2,3\n4,5\n"
		run := p.CreateRun(core.NewDialect(core.Comma, false))
		err := p.Ingest(ctx, run, stringOpener(data), ws, audit)
		Expect(err).NotTo(HaveOccurred())
		Expect(p.Status(run).State).To(Equal(core.Failed))
	})

	It("flags mixed line endings as a warning, not a failure", func() {
		data := "id,name\r\n1,alice\n2,bob\r\n"
		run := p.CreateRun(core.NewDialect(core.Comma, false))
		err := p.Ingest(ctx, run, stringOpener(data), ws, audit)
		Expect(err).NotTo(HaveOccurred())

		snap := p.Status(run)
		Expect(snap.State).To(Equal(core.Completed))
		found := false
		for _, d := range snap.Errors {
			if d.Code == "W_LINE_ENDING" {
				found = true
			}
		}
		Expect(found).To(BeTrue())
	})

	It("auto-detects a pipe-delimited dialect when none is supplied", func() {
		data := "id|name\n1|alice\n2|bob\n"
		run := p.CreateRun(core.NewDialect(0, false))
		err := p.Ingest(ctx, run, stringOpener(data), ws, audit)
		Expect(err).NotTo(HaveOccurred())
		Expect(p.Status(run).State).To(Equal(core.Completed))
	})

	It("flags a delimiter mismatch as a warning, not a failure", func() {
		data := "id|name\n1|alice\n2|bob\n"
		run := p.CreateRun(core.NewDialect(core.Semicolon, false))
		err := p.Ingest(ctx, run, stringOpener(data), ws, audit)
		Expect(err).NotTo(HaveOccurred())

		snap := p.Status(run)
		Expect(snap.State).To(Equal(core.Completed))
		found := false
		for _, d := range snap.Errors {
			if d.Code == "W_DELIMITER_MISMATCH" {
				found = true
			}
		}
		Expect(found).To(BeTrue())
	})

	It("suggests a high-cardinality single column as a candidate key", func() {
		var b strings.Builder
		b.WriteString("id,status\n")
		for i := 1; i <= 50; i++ {
			b.WriteString(strconv.Itoa(i) + ",active\n")
		}
		run := p.CreateRun(core.NewDialect(core.Comma, false))
		Expect(p.Ingest(ctx, run, stringOpener(b.String()), ws, audit)).To(Succeed())

		keys := p.SuggestKeys(run)
		Expect(keys).NotTo(BeEmpty())
		Expect(keys[0].Columns).To(Equal([]string{"id"}))
	})

	It("detects exact duplicates on a confirmed key", func() {
		data := "id,name\n1,alice\n2,bob\n1,alice\n"
		run := p.CreateRun(core.NewDialect(core.Comma, false))
		Expect(p.Ingest(ctx, run, stringOpener(data), ws, audit)).To(Succeed())

		res, err := p.CheckDuplicates(ctx, run, stringOpener(data), []string{"id"}, ws)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.HasDuplicates).To(BeTrue())
		Expect(res.DuplicateCount).To(Equal(int64(1)))
		Expect(res.DuplicateRows).To(Equal(int64(2)))
	})

	It("respects context cancellation mid-ingest", func() {
		var b strings.Builder
		b.WriteString("id\n")
		for i := 0; i < 5000; i++ {
			b.WriteString(strconv.Itoa(i) + "\n")
		}
		cctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
		defer cancel()
		time.Sleep(time.Millisecond)

		run := p.CreateRun(core.NewDialect(core.Comma, false))
		err := p.Ingest(cctx, run, stringOpener(b.String()), ws, audit)
		Expect(err).To(HaveOccurred())
		Expect(p.Status(run).State).To(Equal(core.Failed))
	})
})
