package pipeline

import (
	"context"
	"errors"
	"testing"

	"docindex/pkg/logger"
)

// fakeNode records whether it ran and emits a fixed channel.
type fakeNode struct {
	channel string
	err     error
	ran     int
}

func (n *fakeNode) Run(ctx context.Context, p *Payload) (string, error) {
	n.ran++
	return n.channel, n.err
}

func testLogger() *logger.Logger {
	return logger.New("test", "")
}

func TestAddNode_InputMustResolve(t *testing.T) {
	p := New(testLogger())

	if err := p.AddNode(&fakeNode{channel: DefaultOutput}, "A", []string{"Missing"}); err == nil {
		t.Fatal("expected an error for an unresolvable input")
	}
	if err := p.AddNode(&fakeNode{channel: DefaultOutput}, "A", []string{EntryPoint}); err != nil {
		t.Fatalf("AddNode() error = %v", err)
	}
	if err := p.AddNode(&fakeNode{channel: DefaultOutput}, "A", []string{EntryPoint}); err == nil {
		t.Fatal("expected an error for a duplicate node name")
	}
	if err := p.AddNode(&fakeNode{channel: DefaultOutput}, "B", []string{"File.output_1"}); err == nil {
		t.Fatal("expected an error for a named channel on the entry point")
	}
}

func TestAddNode_RejectsSelfReference(t *testing.T) {
	p := New(testLogger())

	// A node cannot name itself as input: inputs must already exist, which
	// is also what keeps the graph acyclic.
	if err := p.AddNode(&fakeNode{channel: DefaultOutput}, "A", []string{"A"}); err == nil {
		t.Fatal("expected an error for a self-referencing node")
	}
}

func TestValidate_ExactlyOneTerminal(t *testing.T) {
	p := New(testLogger())
	mustAdd(t, p, &fakeNode{channel: DefaultOutput}, "A", []string{EntryPoint})
	mustAdd(t, p, &fakeNode{channel: DefaultOutput}, "B", []string{"A"})
	mustAdd(t, p, &fakeNode{channel: DefaultOutput}, "C", []string{"A"})

	if err := p.Validate(); err == nil {
		t.Fatal("expected an error for two terminal nodes")
	}

	mustAdd(t, p, &fakeNode{channel: DefaultOutput}, "D", []string{"B", "C"})
	if err := p.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}

func TestRun_FanOutSelectsOneBranch(t *testing.T) {
	p := New(testLogger())
	classifier := &fakeNode{channel: "output_2"}
	branch1 := &fakeNode{channel: DefaultOutput}
	branch2 := &fakeNode{channel: DefaultOutput}
	branch3 := &fakeNode{channel: DefaultOutput}
	merge := &fakeNode{channel: DefaultOutput}
	terminal := &fakeNode{channel: DefaultOutput}

	mustAdd(t, p, classifier, "Classifier", []string{EntryPoint})
	mustAdd(t, p, branch1, "B1", []string{"Classifier.output_1"})
	mustAdd(t, p, branch2, "B2", []string{"Classifier.output_2"})
	mustAdd(t, p, branch3, "B3", []string{"Classifier.output_3"})
	mustAdd(t, p, merge, "Merge", []string{"B1", "B2", "B3"})
	mustAdd(t, p, terminal, "Terminal", []string{"Merge"})

	err := p.Run(context.Background(), []string{"a.pdf"}, []map[string]interface{}{{}})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if branch1.ran != 0 || branch3.ran != 0 {
		t.Errorf("unmatched branches ran: B1=%d B3=%d", branch1.ran, branch3.ran)
	}
	if branch2.ran != 1 {
		t.Errorf("expected B2 to run once, ran %d times", branch2.ran)
	}
	if merge.ran != 1 || terminal.ran != 1 {
		t.Errorf("expected merge and terminal to run once, got %d and %d", merge.ran, terminal.ran)
	}
}

func TestRun_EmptyOutputDropsDownstream(t *testing.T) {
	p := New(testLogger())
	head := &fakeNode{channel: ""} // classifier with no matching branch
	tail := &fakeNode{channel: DefaultOutput}

	mustAdd(t, p, head, "Head", []string{EntryPoint})
	mustAdd(t, p, tail, "Tail", []string{"Head"})

	err := p.Run(context.Background(), []string{"a.xyz"}, []map[string]interface{}{{}})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if head.ran != 1 {
		t.Errorf("expected head to run once, ran %d times", head.ran)
	}
	if tail.ran != 0 {
		t.Errorf("expected downstream to be skipped, ran %d times", tail.ran)
	}
}

func TestRun_ErrorAbortsBatch(t *testing.T) {
	p := New(testLogger())
	boom := errors.New("boom")
	head := &fakeNode{channel: DefaultOutput}
	tail := &fakeNode{channel: DefaultOutput, err: boom}

	mustAdd(t, p, head, "Head", []string{EntryPoint})
	mustAdd(t, p, tail, "Tail", []string{"Head"})

	paths := []string{"a.txt", "b.txt", "c.txt"}
	metas := []map[string]interface{}{{}, {}, {}}
	err := p.Run(context.Background(), paths, metas)
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped node error, got %v", err)
	}
	if head.ran != 1 {
		t.Errorf("expected the batch to abort after the first file, head ran %d times", head.ran)
	}
}

func TestRun_EveryFileRunsIndependently(t *testing.T) {
	p := New(testLogger())
	head := &fakeNode{channel: DefaultOutput}
	mustAdd(t, p, head, "Head", []string{EntryPoint})

	paths := []string{"a.txt", "b.txt", "c.txt"}
	metas := []map[string]interface{}{{}, {}, {}}
	if err := p.Run(context.Background(), paths, metas); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if head.ran != len(paths) {
		t.Errorf("expected head to run %d times, ran %d", len(paths), head.ran)
	}
}

func TestRun_MismatchedMetas(t *testing.T) {
	p := New(testLogger())
	mustAdd(t, p, &fakeNode{channel: DefaultOutput}, "Head", []string{EntryPoint})

	if err := p.Run(context.Background(), []string{"a.txt"}, nil); err == nil {
		t.Fatal("expected an error for mismatched paths and metadata")
	}
}

func mustAdd(t *testing.T, p *Pipeline, n Node, name string, inputs []string) {
	t.Helper()
	if err := p.AddNode(n, name, inputs); err != nil {
		t.Fatalf("AddNode(%s) error = %v", name, err)
	}
}
