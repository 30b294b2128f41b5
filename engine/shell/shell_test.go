package shell

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/sanjuz-cas/llm-kg-project/engine/cypherqa"
	"github.com/sanjuz-cas/llm-kg-project/pkg/resilience"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAsker struct {
	asked   []string
	answers map[string]string
	fail    map[string]error
}

func (a *fakeAsker) Invoke(_ context.Context, q string) (cypherqa.Result, error) {
	a.asked = append(a.asked, q)
	if err := a.fail[q]; err != nil {
		return cypherqa.Result{}, err
	}
	return cypherqa.Result{Question: q, Answer: a.answers[q]}, nil
}

func TestRunAnswersUntilExit(t *testing.T) {
	asker := &fakeAsker{answers: map[string]string{
		"How many patients?": "There are 3 patients.",
	}}
	var out bytes.Buffer
	in := strings.NewReader("How many patients?\n  EXIT  \nnever asked\n")

	require.NoError(t, New(asker, in, &out).Run(t.Context()))

	assert.Equal(t, []string{"How many patients?"}, asker.asked)
	want := "Knowledge Graph Q&A\n" +
		"Ask a question about the antibiotic resistance data. Type 'exit' to quit.\n" +
		"\nYour question: " +
		"\n> Question: How many patients?\n" +
		"\n> Answer: There are 3 patients.\n" +
		"\nYour question: "
	assert.Equal(t, want, out.String())
}

func TestRunContinuesAfterError(t *testing.T) {
	asker := &fakeAsker{
		fail:    map[string]error{"bad": errors.New("SyntaxError: invalid input")},
		answers: map[string]string{"good": "fine"},
	}
	var out bytes.Buffer
	require.NoError(t, New(asker, strings.NewReader("bad\ngood\n"), &out).Run(t.Context()))

	assert.Equal(t, []string{"bad", "good"}, asker.asked)
	assert.Contains(t, out.String(), "An error occurred: SyntaxError: invalid input\n")
	assert.Contains(t, out.String(), "> Answer: fine")
}

func TestRunEndsAtEOF(t *testing.T) {
	asker := &fakeAsker{}
	var out bytes.Buffer
	require.NoError(t, New(asker, strings.NewReader("only question"), &out).Run(t.Context()))
	assert.Equal(t, []string{"only question"}, asker.asked)
	assert.True(t, strings.HasSuffix(out.String(), "\nYour question: "))
}

func TestRunForwardsBlankLines(t *testing.T) {
	asker := &fakeAsker{}
	require.NoError(t, New(asker, strings.NewReader("\n   \nexit\n"), io.Discard).Run(t.Context()))
	assert.Equal(t, []string{"", "   "}, asker.asked)
}

func TestRunStopsOnCancel(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- New(&fakeAsker{}, pr, io.Discard).Run(ctx) }()
	cancel()
	assert.NoError(t, <-done)
}

func TestRunWithLimiter(t *testing.T) {
	asker := &fakeAsker{}
	l := resilience.NewLimiter(6000, 5)
	require.NoError(t, New(asker, strings.NewReader("a\nb\n"), io.Discard, WithLimiter(l), WithLogger(nil)).Run(t.Context()))
	assert.Equal(t, []string{"a", "b"}, asker.asked)
}

func TestRunAcceptsLongLines(t *testing.T) {
	long := strings.Repeat("x", 70*1024)
	asker := &fakeAsker{answers: map[string]string{"next": "still here"}}
	var out bytes.Buffer
	in := strings.NewReader(long + "\r\nnext\nexit\n")

	require.NoError(t, New(asker, in, &out).Run(t.Context()))

	require.Len(t, asker.asked, 2)
	assert.Len(t, asker.asked[0], len(long))
	assert.Equal(t, "next", asker.asked[1])
	assert.Contains(t, out.String(), "> Answer: still here")
}

type brokenReader struct {
	data io.Reader
	err  error
}

func (r *brokenReader) Read(p []byte) (int, error) {
	n, err := r.data.Read(p)
	if err == io.EOF {
		return n, r.err
	}
	return n, err
}

func TestRunReportsReadFailure(t *testing.T) {
	asker := &fakeAsker{answers: map[string]string{"first": "ok"}}
	var out bytes.Buffer
	in := &brokenReader{data: strings.NewReader("first\n"), err: errors.New("terminal detached")}

	require.NoError(t, New(asker, in, &out).Run(t.Context()))

	assert.Equal(t, []string{"first"}, asker.asked)
	assert.Contains(t, out.String(), "> Answer: ok")
	assert.Contains(t, out.String(), "An error occurred: read question: terminal detached\n")
}
