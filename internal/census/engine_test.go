package census

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/kailas-cloud/ccdarank/internal/corpus"
	"github.com/kailas-cloud/ccdarank/internal/domain"
	"github.com/kailas-cloud/ccdarank/internal/domain/document"
	"github.com/kailas-cloud/ccdarank/internal/loader"
)

const (
	vitalsID     = "2.16.840.1.113883.10.20.22.2.4.1"
	assessmentID = "2.16.840.1.113883.10.20.22.2.8"
)

func sectionXML(templateID, title, body string) string {
	return `<component><section><templateId root="` + templateID + `"/><title>` + title + `</title>` +
		body + `</section></component>`
}

func docXML(sections ...string) string {
	out := `<ClinicalDocument xmlns="urn:hl7-org:v3"><component><structuredBody>`
	for _, s := range sections {
		out += s
	}
	return out + `</structuredBody></component></ClinicalDocument>`
}

func writeCorpus(t *testing.T, files map[string]string) []document.Handle {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	handles, err := corpus.NewLister("").List(context.Background(), dir)
	if err != nil {
		t.Fatal(err)
	}
	return handles
}

func sampleCorpus(t *testing.T) []document.Handle {
	t.Helper()
	return writeCorpus(t, map[string]string{
		"a.xml": docXML(
			sectionXML(vitalsID, "Vital Signs", `<entry><observation><code code="1"/></observation></entry>`),
			sectionXML(assessmentID, "Assessment", `<text>Patient doing well</text>`),
		),
		"b.xml": docXML(
			sectionXML(vitalsID, "Vitals", `<entry/><entry/>`),
		),
		"c.xml": `<ClinicalDocument><component>`,
		"d.xml": docXML(),
	})
}

type fakeGuard struct {
	releaseOn map[int]bool
	calls     int
}

func (g *fakeGuard) Check() (bool, uint64) {
	g.calls++
	return g.releaseOn[g.calls], uint64(g.calls)
}

func TestRun_BuildsReport(t *testing.T) {
	handles := sampleCorpus(t)
	e, err := New(loader.New(loader.Options{}), 2)
	if err != nil {
		t.Fatal(err)
	}

	rep, sum, err := e.Run(context.Background(), handles, "fp")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sum.Documents != 4 || sum.Processed != 3 || sum.Failed != 1 || sum.Batches != 2 {
		t.Errorf("summary = %+v", sum)
	}
	if rep.DocumentsProcessed != 3 || rep.DocumentsFailed != 1 || rep.CorpusFingerprint != "fp" {
		t.Errorf("report header = %+v", rep)
	}
	if err := rep.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
	if len(rep.Sections) != 2 {
		t.Fatalf("sections = %d, want 2", len(rep.Sections))
	}

	vitals := rep.Sections[0]
	if vitals.SectionID != vitalsID {
		t.Fatalf("most frequent section = %s", vitals.SectionID)
	}
	if vitals.DocumentsSeen != 2 || vitals.TotalEntries != 3 || vitals.TotalCodedElements != 1 {
		t.Errorf("vitals stat = %+v", vitals)
	}
	if math.Abs(vitals.Frequency-2.0/3.0) > 1e-12 {
		t.Errorf("vitals frequency = %v", vitals.Frequency)
	}
	if diff := cmp.Diff([]string{"Vital Signs", "Vitals"}, vitals.Titles); diff != "" {
		t.Errorf("titles mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"a.xml", "b.xml"}, vitals.ExampleDocuments); diff != "" {
		t.Errorf("examples mismatch (-want +got):\n%s", diff)
	}

	assessment := rep.Sections[1]
	if assessment.Kind != "narrative" || assessment.TotalNarrativeWords != 3 {
		t.Errorf("assessment stat = %+v", assessment)
	}
}

func TestRun_FrequencyInvariantAcrossBatchSizes(t *testing.T) {
	handles := sampleCorpus(t)
	var first []byte
	for _, size := range []int{1, 2, 3, 10} {
		e, err := New(loader.New(loader.Options{}), size)
		if err != nil {
			t.Fatal(err)
		}
		rep, _, err := e.Run(context.Background(), handles, "fp")
		if err != nil {
			t.Fatalf("batch size %d: %v", size, err)
		}
		for _, s := range rep.Sections {
			want := float64(s.DocumentsSeen) / float64(rep.DocumentsProcessed)
			if s.Frequency != want || s.Frequency < 0 || s.Frequency > 1 {
				t.Errorf("batch size %d: section %s frequency %v, want %v", size, s.SectionID, s.Frequency, want)
			}
		}
		fp, err := rep.Fingerprint()
		if err != nil {
			t.Fatal(err)
		}
		if first == nil {
			first = []byte(fp)
		} else if string(first) != fp {
			t.Errorf("batch size %d produced a different report", size)
		}
	}
}

func TestRun_AllFailed(t *testing.T) {
	handles := writeCorpus(t, map[string]string{"x.xml": "<broken", "y.xml": ""})
	e, _ := New(loader.New(loader.Options{}), 1)
	rep, sum, err := e.Run(context.Background(), handles, "fp")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sum.Failed != 2 || rep.DocumentsProcessed != 0 || len(rep.Sections) != 0 {
		t.Errorf("summary = %+v, report = %+v", sum, rep)
	}
}

func TestRun_MemoryBackpressure(t *testing.T) {
	handles := sampleCorpus(t)
	g := &fakeGuard{releaseOn: map[int]bool{1: true, 3: true}}
	e, _ := New(loader.New(loader.Options{}), 1)
	e.WithGuard(g)

	rep, sum, err := e.Run(context.Background(), handles, "fp")
	if err != nil {
		t.Fatalf("backpressure must not fail the pass: %v", err)
	}
	if g.calls != 4 || sum.MemoryReleases != 2 {
		t.Errorf("guard calls = %d, releases = %d", g.calls, sum.MemoryReleases)
	}
	if rep.DocumentsProcessed != 3 {
		t.Errorf("processed = %d", rep.DocumentsProcessed)
	}
}

func TestRun_Cancelled(t *testing.T) {
	handles := sampleCorpus(t)
	e, _ := New(loader.New(loader.Options{}), 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := e.Run(ctx, handles, "fp")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestRun_Retention(t *testing.T) {
	files := map[string]string{}
	for _, n := range []string{"1", "2", "3"} {
		files[n+".xml"] = docXML(sectionXML(vitalsID, "Vitals "+n, ""))
	}
	e, _ := New(loader.New(loader.Options{}), 10)
	e.WithRetention(2, 1)

	rep, _, err := e.Run(context.Background(), writeCorpus(t, files), "fp")
	if err != nil {
		t.Fatal(err)
	}
	st := rep.Sections[0]
	if len(st.ExampleDocuments) != 2 || len(st.Titles) != 1 {
		t.Errorf("retention not applied: %+v", st)
	}
}

func TestNew_InvalidBatchSize(t *testing.T) {
	_, err := New(loader.New(loader.Options{}), 0)
	var ce *domain.ConfigError
	if !errors.As(err, &ce) || ce.Field != "batch_size" {
		t.Fatalf("expected batch_size ConfigError, got %v", err)
	}
}
