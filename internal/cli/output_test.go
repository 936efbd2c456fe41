package cli_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/aretw0/corefollow/internal/cli"
	"github.com/aretw0/corefollow/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStepPrinter(t *testing.T) {
	var buf bytes.Buffer
	p := cli.NewStepPrinter(&buf, []string{"R5", "R3"})

	p.Print(&domain.Result{Time: 3600, Power: 0.8, Eigenvalue: 1, Boron: 1200, RodPositions: map[string]float64{"R3": 381, "R5": 200}})
	p.Print(&domain.Result{Time: 7200, Power: 0.5, Eigenvalue: 1, Boron: 1250, Error: domain.CodeConvergence, RodPositions: map[string]float64{"R3": 381, "R5": 150}})

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3, "header written once")
	assert.Regexp(t, `time\(h\).*R3.*R5.*code`, lines[0])
	assert.Contains(t, lines[1], "80.00")
	assert.Contains(t, lines[1], "200.0")
	assert.Contains(t, lines[2], "2.000")
	assert.Contains(t, lines[2], "150.0")
}

func TestPrintSDM(t *testing.T) {
	var buf bytes.Buffer
	cli.PrintSDM(&buf, &domain.SDMResult{
		BiteWorth:     1880,
		StuckRod:      "R3",
		StuckRodWorth: 500,
		Margin:        -20,
		BankWorths:    map[string]float64{"R4": 700, "R3": 500},
	})
	out := buf.String()
	assert.Contains(t, out, "stuck rod R3")
	assert.Contains(t, out, "-500.0 pcm")
	assert.Contains(t, out, "INSUFFICIENT")
	assert.Less(t, strings.Index(out, "bank R3"), strings.Index(out, "bank R4"))
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, cli.WriteJSON(&buf, &domain.SDMResult{Margin: 12}))
	assert.Contains(t, buf.String(), `"margin":12`)
	assert.True(t, strings.HasSuffix(buf.String(), "\n"))
}

func TestSignalContext_Cancel(t *testing.T) {
	sc := cli.NewSignalContext(context.Background())
	sc.Cancel()
	<-sc.Done()
	assert.Nil(t, sc.Signal())
}
