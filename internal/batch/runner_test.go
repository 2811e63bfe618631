package batch

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/samcharles93/tabpredict/internal/logger"
	"github.com/samcharles93/tabpredict/internal/predict"
)

const treeCSV = "a,b,c,note\n1,2,0,x\n0,NA,,y\n1,5,3,z\n"

func treeService() *predict.Service {
	return predict.NewService(predict.ArtifactLoader(filepath.Join("..", "model", "testdata", "decision_tree.json")), nil)
}

func writeInput(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}
	return path
}

func readOutput(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	return string(data)
}

func TestRunAppendsPredictionColumn(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	in := writeInput(t, dir, "in.csv", []byte(treeCSV))
	out := filepath.Join(dir, "out.csv")

	sum, err := NewRunner(treeService()).Run(context.Background(), Options{InputPath: in, OutputPath: out})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	want := "a,b,c,note,prediction\n1,2,0,x,1\n0,NA,,y,0\n1,5,3,z,0\n"
	if got := readOutput(t, out); got != want {
		t.Fatalf("output mismatch:\n got %q\nwant %q", got, want)
	}
	if sum.Rows != 3 || sum.Probabilities {
		t.Fatalf("unexpected summary: %+v", sum)
	}
	if !reflect.DeepEqual(sum.DroppedColumns, []string{"note"}) || len(sum.MissingColumns) != 0 {
		t.Fatalf("unexpected report in summary: %+v", sum)
	}
}

func TestRunWithProbabilitiesAndCustomColumn(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	in := writeInput(t, dir, "in.csv", []byte(treeCSV))
	out := filepath.Join(dir, "out.csv")

	_, err := NewRunner(treeService()).Run(context.Background(), Options{
		InputPath:     in,
		OutputPath:    out,
		Column:        "label",
		Probabilities: true,
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	want := "a,b,c,note,label,proba_0,proba_1\n" +
		"1,2,0,x,1,0.25,0.75\n" +
		"0,NA,,y,0,0.8,0.2\n" +
		"1,5,3,z,0,1,0\n"
	if got := readOutput(t, out); got != want {
		t.Fatalf("output mismatch:\n got %q\nwant %q", got, want)
	}
}

func TestRunMissingColumnsAreFilled(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	in := writeInput(t, dir, "in.csv", []byte("a\n1\n"))
	out := filepath.Join(dir, "out.csv")

	sum, err := NewRunner(treeService()).Run(context.Background(), Options{InputPath: in, OutputPath: out})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !reflect.DeepEqual(sum.MissingColumns, []string{"b", "c"}) {
		t.Fatalf("missing columns = %v", sum.MissingColumns)
	}
	// a=1 goes right, c filled with 0 goes left: class 1.
	if got := readOutput(t, out); got != "a,prediction\n1,1\n" {
		t.Fatalf("output = %q", got)
	}
}

func TestRunOverwritesExistingColumn(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	in := writeInput(t, dir, "in.csv", []byte("prediction,a,b,c\nold,0,0,0\n"))
	out := filepath.Join(dir, "out.csv")

	if _, err := NewRunner(treeService()).Run(context.Background(), Options{InputPath: in, OutputPath: out}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got := readOutput(t, out); got != "prediction,a,b,c\n0,0,0,0\n" {
		t.Fatalf("output = %q", got)
	}
}

func TestRunKeepsDuplicateHeaderNames(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	in := writeInput(t, dir, "in.csv", []byte("a,b,c,a\n1,2,0,9\n"))
	out := filepath.Join(dir, "out.csv")

	sum, err := NewRunner(treeService()).Run(context.Background(), Options{InputPath: in, OutputPath: out})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got := readOutput(t, out); got != "a,b,c,a,prediction\n1,2,0,9,1\n" {
		t.Fatalf("output = %q", got)
	}
	if !reflect.DeepEqual(sum.Columns, []string{"a", "b", "c", "a", "prediction"}) {
		t.Fatalf("summary columns = %v", sum.Columns)
	}
	// The second "a" reaches the model under its deduplicated name.
	if !reflect.DeepEqual(sum.DroppedColumns, []string{"a.1"}) {
		t.Fatalf("dropped columns = %v", sum.DroppedColumns)
	}
}

func TestRunPadsShortRows(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	in := writeInput(t, dir, "in.csv", []byte("a,b,c\n1,2\n0,0,0\n"))
	out := filepath.Join(dir, "out.csv")

	if _, err := NewRunner(treeService()).Run(context.Background(), Options{InputPath: in, OutputPath: out}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	// The absent c is filled with 0, so a=1 lands in the class 1 leaf.
	if got := readOutput(t, out); got != "a,b,c,prediction\n1,2,,1\n0,0,0,0\n" {
		t.Fatalf("output = %q", got)
	}
}

func TestRunWarnsWhenProbabilityColumnExists(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	in := writeInput(t, dir, "in.csv", []byte("a,b,c,proba_1\n0,0,0,keep?\n"))
	out := filepath.Join(dir, "out.csv")

	var buf bytes.Buffer
	ctx := logger.WithContext(context.Background(), logger.JSON(&buf, slog.LevelDebug))
	if _, err := NewRunner(treeService()).Run(ctx, Options{InputPath: in, OutputPath: out, Probabilities: true}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got := readOutput(t, out); got != "a,b,c,proba_1,prediction,proba_0\n0,0,0,0.2,0,0.8\n" {
		t.Fatalf("output = %q", got)
	}
	if !strings.Contains(buf.String(), "overwriting existing input column") || !strings.Contains(buf.String(), "proba_1") {
		t.Fatalf("expected an overwrite warning, got: %s", buf.String())
	}
}

func TestRunDecodesLatin1(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	// "nome" holds José encoded as ISO-8859-1.
	raw := []byte("a,b,c,nome\n0,0,0,Jos\xe9\n")
	in := writeInput(t, dir, "in.csv", raw)
	out := filepath.Join(dir, "out.csv")

	if _, err := NewRunner(treeService()).Run(context.Background(), Options{InputPath: in, OutputPath: out, Encoding: "latin1"}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got := readOutput(t, out); got != "a,b,c,nome,prediction\n0,0,0,José,0\n" {
		t.Fatalf("output = %q", got)
	}
}

func TestRunStripsUTF8BOM(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	in := writeInput(t, dir, "in.csv", []byte("\xef\xbb\xbfa,b,c\n1,0,0\n"))
	out := filepath.Join(dir, "out.csv")

	sum, err := NewRunner(treeService()).Run(context.Background(), Options{InputPath: in, OutputPath: out})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(sum.MissingColumns) != 0 {
		t.Fatalf("BOM leaked into header: missing %v", sum.MissingColumns)
	}
	if got := readOutput(t, out); !strings.HasPrefix(got, "a,b,c,prediction\n") {
		t.Fatalf("output = %q", got)
	}
}

func TestRunEmptyInputFailsBeforeLoading(t *testing.T) {
	t.Parallel()

	for name, content := range map[string]string{"empty": "", "header only": "a,b,c\n"} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			dir := t.TempDir()
			in := writeInput(t, dir, "in.csv", []byte(content))
			out := filepath.Join(dir, "out.csv")

			loads := 0
			svc := predict.NewService(predict.LoaderFunc(func(context.Context) (predict.Handle, error) {
				loads++
				return nil, errors.New("unexpected load")
			}), nil)
			_, err := NewRunner(svc).Run(context.Background(), Options{InputPath: in, OutputPath: out})
			if !errors.Is(err, predict.ErrInputEmpty) {
				t.Fatalf("expected ErrInputEmpty, got %v", err)
			}
			if loads != 0 {
				t.Fatalf("model loaded %d times", loads)
			}
			if _, err := os.Stat(out); !errors.Is(err, os.ErrNotExist) {
				t.Fatalf("output must not be written, stat err = %v", err)
			}
		})
	}
}

func TestRunErrors(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	good := writeInput(t, dir, "good.csv", []byte(treeCSV))
	ragged := writeInput(t, dir, "ragged.csv", []byte("a,b\n1,2,3\n"))
	text := writeInput(t, dir, "text.csv", []byte("a,b,c\ntall,1,1\n"))

	cases := []struct {
		name string
		opts Options
		want error
		kind predict.ErrorKind
	}{
		{"missing input", Options{InputPath: filepath.Join(dir, "nope.csv"), OutputPath: filepath.Join(dir, "o1.csv")}, ErrInputMissing, ""},
		{"no output path", Options{InputPath: good}, ErrInputInvalid, ""},
		{"unknown encoding", Options{InputPath: good, OutputPath: filepath.Join(dir, "o2.csv"), Encoding: "klingon"}, ErrInputInvalid, ""},
		{"ragged rows", Options{InputPath: ragged, OutputPath: filepath.Join(dir, "o3.csv")}, ErrInputInvalid, ""},
		{"non numeric cell", Options{InputPath: text, OutputPath: filepath.Join(dir, "o4.csv")}, nil, predict.KindInferenceFailure},
	}
	for _, tc := range cases {
		_, err := NewRunner(treeService()).Run(context.Background(), tc.opts)
		if err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
		if tc.want != nil && !errors.Is(err, tc.want) {
			t.Fatalf("%s: got %v, want %v", tc.name, err, tc.want)
		}
		if tc.kind != "" && predict.Kind(err) != tc.kind {
			t.Fatalf("%s: got kind %q, want %q", tc.name, predict.Kind(err), tc.kind)
		}
		if tc.opts.OutputPath != "" {
			if _, err := os.Stat(tc.opts.OutputPath); !errors.Is(err, os.ErrNotExist) {
				t.Fatalf("%s: output must not be written", tc.name)
			}
		}
	}
}

func TestDedupeHeader(t *testing.T) {
	t.Parallel()

	got := dedupeHeader([]string{"a", "b", "a", "a.1", "a"})
	want := []string{"a", "b", "a.2", "a.1", "a.3"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("dedupeHeader = %v, want %v", got, want)
	}
}

func TestMissingTokensBecomeNil(t *testing.T) {
	t.Parallel()

	s := &sheet{header: []string{"x"}, rows: [][]string{{"NA"}, {" null "}, {"None"}, {"0"}, {"n/a"}}}
	b := s.batch()
	for i, wantNil := range []bool{true, true, true, false, false} {
		v, _ := b[i].Get("x")
		if (v == nil) != wantNil {
			t.Fatalf("row %d: value %v, wantNil %v", i, v, wantNil)
		}
	}
}
