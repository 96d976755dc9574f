package splice

import (
	"errors"
	"strings"
	"testing"

	"github.com/pyshare-dev/pyshare/internal/languages"
	"github.com/pyshare-dev/pyshare/internal/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const utilsSource = `"""Utility functions for exploratory data analysis."""

import pandas as pd
from plotly.subplots import make_subplots


def format_args(args):
    """Format args to pass to sql queries."""
    args_out = args.copy()
    for key, value in args_out.items():
        if isinstance(value, list):
            args_out[key] = ", ".join([str(element) for element in value])
    return args_out


def _arg_to_list(arg):
    if isinstance(arg, list):
        return arg.copy()
    return [arg]


def ts_plot(df, y, x="day"):
    y_list = _arg_to_list(y)
    fig = make_subplots(specs=[[{"secondary_y": True}]])
    return fig
`

var defaultFunctions = []string{"ts_plot", "format_args"}

func parse(t *testing.T, name, src string) *parser.Module {
	t.Helper()
	module, err := languages.NewPythonParser().Parse(name, []byte(src))
	require.NoError(t, err)
	return module
}

func defSource(t *testing.T, utils *parser.Module, name string) string {
	t.Helper()
	defs, _ := utils.Definitions()
	def, ok := defs[name]
	require.True(t, ok, "utils defines %s", name)
	return strings.TrimRight(def.Source, " \t\r\n")
}

func build(t *testing.T, target *parser.Module, utils *parser.Module, policy Policy) *Plan {
	t.Helper()
	plan, err := Build(target, utils, Options{
		UtilsModule: "tm.utils",
		Functions:   defaultFunctions,
		Policy:      policy,
	})
	require.NoError(t, err)
	return plan
}

func render(t *testing.T, plan *Plan, target *parser.Module) string {
	t.Helper()
	out, err := plan.Render(target)
	require.NoError(t, err)
	return string(out)
}

func TestBuildMarkerPolicyInsertsBeforeSecondMarker(t *testing.T) {
	utils := parse(t, "utils.py", utilsSource)
	target := parse(t, "eda.py", `# %%
import tm.utils as tu
import pandas as pd

# %%
args = tu.format_args({"ids": [1, 2]})
fig = tu.ts_plot(df, "a")
`)

	plan := build(t, target, utils, PolicyAuto)
	assert.Equal(t, PolicyMarker, plan.Policy)
	require.NotNil(t, plan.Insertion)
	assert.Equal(t, 5, plan.Insertion.Line)
	assert.Equal(t, []string{"_arg_to_list", "ts_plot", "format_args"}, plan.Inlined())

	want := "# %%\n" +
		"import pandas as pd\nfrom plotly.subplots import make_subplots\n" +
		"import pandas as pd\n\n" +
		defSource(t, utils, "_arg_to_list") + "\n\n\n" +
		defSource(t, utils, "ts_plot") + "\n\n\n" +
		defSource(t, utils, "format_args") + "\n\n\n" +
		"# %%\n" +
		"args = format_args({\"ids\": [1, 2]})\n" +
		"fig = ts_plot(df, \"a\")\n"
	assert.Equal(t, want, render(t, plan, target))
}

func TestBuildMarkerPolicyRequiresSecondMarker(t *testing.T) {
	utils := parse(t, "utils.py", utilsSource)
	target := parse(t, "eda.py", `# %%
import tm.utils as tu

args = tu.format_args({"ids": [1, 2]})
`)

	_, err := Build(target, utils, Options{UtilsModule: "tm.utils", Functions: defaultFunctions})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingInsertionPoint))
	assert.Contains(t, err.Error(), "found 1 of 2")
}

func TestBuildSelectiveImportInlinesInPlace(t *testing.T) {
	utils := parse(t, "utils.py", utilsSource)
	target := parse(t, "eda.py", `from tm.utils import format_args

args = format_args({"ids": [1, 2]})
`)

	plan := build(t, target, utils, PolicyAuto)
	assert.Equal(t, PolicyImport, plan.Policy)
	assert.Nil(t, plan.Insertion)

	got := render(t, plan, target)
	want := "import pandas as pd\nfrom plotly.subplots import make_subplots\n\n\n" +
		defSource(t, utils, "format_args") +
		"\n\n\nargs = format_args({\"ids\": [1, 2]})\n"
	assert.Equal(t, want, got)
	assert.NotContains(t, got, "tm.utils")
	assert.Contains(t, got, `args_out[key] = ", ".join([str(element) for element in value])`)
}

func TestBuildEmitsDependencyBeforeDependent(t *testing.T) {
	utils := parse(t, "utils.py", utilsSource)
	target := parse(t, "eda.py", `from tm.utils import ts_plot, format_args

fig = ts_plot(df, "a")
`)

	plan := build(t, target, utils, PolicyImport)
	got := render(t, plan, target)

	helper := strings.Index(got, "def _arg_to_list(")
	plot := strings.Index(got, "def ts_plot(")
	format := strings.Index(got, "def format_args(")
	require.NotEqual(t, -1, helper)
	require.NotEqual(t, -1, plot)
	require.NotEqual(t, -1, format)
	assert.Less(t, helper, plot)
	assert.Less(t, plot, format, "selective imports resolve in statement order")
	assert.Equal(t, 1, strings.Count(got, "def _arg_to_list("))

	require.Len(t, plan.Groups, 2)
	assert.Equal(t, "ts_plot", plan.Groups[0].Function)
	assert.Len(t, plan.Groups[0].Definitions, 2)
}

func TestBuildRenamesSelectiveAliasesAndKeepsUnsupportedNames(t *testing.T) {
	utils := parse(t, "utils.py", utilsSource)
	target := parse(t, "eda.py", `from tm.utils import ts_plot as tp, _arg_to_list, PALETTE

fig = tp(df, y=_arg_to_list("a"))
chart.tp = fig
`)

	plan := build(t, target, utils, PolicyImport)
	got := render(t, plan, target)

	// _arg_to_list is inlined as a dependency of ts_plot; PALETTE is not a function.
	assert.Contains(t, got, "from tm.utils import PALETTE\n")
	assert.NotContains(t, got, "import _arg_to_list")
	assert.Contains(t, got, "fig = ts_plot(df, y=_arg_to_list(\"a\"))")
	assert.Contains(t, got, "chart.tp = fig")
	assert.NotContains(t, got, " as tp")
}

func TestBuildRemovesRepeatedModuleImports(t *testing.T) {
	utils := parse(t, "utils.py", utilsSource)
	target := parse(t, "eda.py", `# %%
import tm.utils as tu
import tm.utils as tu

# %%
args = tu.format_args({})
`)

	plan := build(t, target, utils, PolicyMarker)
	got := render(t, plan, target)

	assert.Equal(t, 1, strings.Count(got, "from plotly.subplots import make_subplots"))
	assert.NotContains(t, got, "tm.utils")
	assert.Contains(t, got, "args = format_args({})")
}

func TestBuildHoistsFutureImportsToTheTop(t *testing.T) {
	utils := parse(t, "utils.py", strings.Replace(utilsSource,
		"\nimport pandas as pd", "\nfrom __future__ import annotations\nimport pandas as pd", 1))
	target := parse(t, "eda.py", `# %%
import tm.utils as tu

# %%
args = tu.format_args({})
`)

	assert.NotContains(t, ImportBlock(utils), "__future__")

	plan := build(t, target, utils, PolicyMarker)
	got := render(t, plan, target)
	assert.True(t, strings.HasPrefix(got, "# %%\nfrom __future__ import annotations\nimport pandas as pd\n"), got)
	assert.Equal(t, 1, strings.Count(got, "from __future__ import annotations"))
}

func TestFutureImportEditSkipsDocstringAndExistingFutureImports(t *testing.T) {
	utils := parse(t, "utils.py", "from __future__ import annotations\nfrom __future__ import division\n")
	target := parse(t, "eda.py", `"""Notebook."""
from __future__ import annotations
import os
`)

	edit, ok := FutureImportEdit(target, utils)
	require.True(t, ok)
	assert.Equal(t, "from __future__ import division\n", edit.Text)

	out, err := Apply(target.Source, []Edit{edit})
	require.NoError(t, err)
	assert.Equal(t, "\"\"\"Notebook.\"\"\"\nfrom __future__ import annotations\nfrom __future__ import division\nimport os\n", string(out))

	_, ok = FutureImportEdit(target, parse(t, "utils.py", "from __future__ import annotations\n"))
	assert.False(t, ok)
}

func TestScanReportsNothingWithoutReferences(t *testing.T) {
	target := parse(t, "eda.py", `import tm.utils as tu
import pandas as pd

df = pd.DataFrame()
tu.other_helper(df)
`)

	refs := Scan(target, "tm.utils", defaultFunctions)
	assert.True(t, refs.Empty())
	assert.True(t, refs.HasModuleImport())
	assert.Equal(t, []string{"tu.other_helper"}, refs.Unsupported)
}

func TestScanRequestedFollowsConfiguredOrder(t *testing.T) {
	target := parse(t, "eda.py", `import tm.utils
args = tm.utils.format_args({})
fig = tm.utils.ts_plot(df, "a")
`)

	refs := Scan(target, "tm.utils", defaultFunctions)
	assert.Equal(t, []string{"ts_plot", "format_args"}, refs.Requested())
	require.Len(t, refs.Uses, 2)
	assert.Equal(t, "tm.utils.format_args", refs.Uses[0].Text)
}

func TestRewriteImportsWithoutMarkerIsNoop(t *testing.T) {
	utils := parse(t, "utils.py", utilsSource)
	target := parse(t, "eda.py", "import pandas as pd\n")

	edits := RewriteImports(target, utils, "tm.utils", nil)
	assert.Empty(t, edits)

	out, err := Apply(target.Source, edits)
	require.NoError(t, err)
	assert.Equal(t, "import pandas as pd\n", string(out))
}

func TestRewriteImportsKeepsOtherModulesOfTheStatement(t *testing.T) {
	utils := parse(t, "utils.py", utilsSource)
	target := parse(t, "eda.py", "import os, tm.utils as tu\n")

	out, err := Apply(target.Source, RewriteImports(target, utils, "tm.utils", nil))
	require.NoError(t, err)
	assert.Equal(t, "import pandas as pd\nfrom plotly.subplots import make_subplots\nimport os\n", string(out))
}

func TestFindInsertionPoint(t *testing.T) {
	src := []byte("x = 1\r\n  # %%  \r\nprint(x)\n# %%\ny = 2\n")

	point, err := FindInsertionPoint(src, "# %%", 2)
	require.NoError(t, err)
	assert.Equal(t, 4, point.Line)
	assert.Equal(t, "# %%\ny = 2\n", string(src[point.Offset:]))

	_, err = FindInsertionPoint(src, "# %%", 3)
	assert.ErrorIs(t, err, ErrMissingInsertionPoint)
}

func TestApplyRejectsOverlappingEdits(t *testing.T) {
	src := []byte("abcdef")

	out, err := Apply(src, []Edit{
		{Span: parser.Span{Start: 4, End: 6}, Text: "XY"},
		{Span: parser.Span{Start: 0, End: 0}, Text: ">"},
		{Span: parser.Span{Start: 1, End: 3}, Text: "-"},
	})
	require.NoError(t, err)
	assert.Equal(t, ">a-dXY", string(out))

	_, err = Apply(src, []Edit{
		{Span: parser.Span{Start: 0, End: 3}, Reason: "first"},
		{Span: parser.Span{Start: 2, End: 4}, Reason: "second"},
	})
	require.Error(t, err)

	_, err = Apply(src, []Edit{{Span: parser.Span{Start: 3, End: 9}}})
	require.Error(t, err)
}

func TestParsePolicy(t *testing.T) {
	policy, err := ParsePolicy(" Marker ")
	require.NoError(t, err)
	assert.Equal(t, PolicyMarker, policy)

	policy, err = ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicyAuto, policy)

	_, err = ParsePolicy("append")
	require.Error(t, err)
}
