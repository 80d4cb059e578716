package cmd

import (
	"flag"

	"github.com/etnz/settle"
	"github.com/etnz/settle/docs"
	"github.com/posener/complete/v2"
	"github.com/posener/complete/v2/predict"
)

// argPredictors completes the positional arguments of some subcommands.
func argPredictors() map[string]complete.Predictor {
	topics, _ := docs.GetAllTopics()
	return map[string]complete.Predictor{
		"import":    predict.Files("*.csv"),
		"topic":     predict.Set(append(topics, "*")),
		"deduction": predict.Set{string(settle.ActConfirm), string(settle.ActPost), string(settle.ActCancel), string(settle.ActDelete)},
		"batch": predict.Set{
			string(settle.ActCreate), string(settle.ActAdd), string(settle.ActRemove), string(settle.ActConfirm),
			string(settle.ActTransfer), string(settle.ActCancel), string(settle.ActDraft), string(settle.ActBackToDraft),
			string(settle.ActReconcile), string(settle.ActUnreconcile), string(settle.ActDelete),
		},
	}
}

// flagPredictors completes flag values that are files.
var flagPredictors = map[string]complete.Predictor{
	"file":          predict.Files("*.json"),
	"frontmatter":   predict.Files("*"),
	"o":             predict.Files("*"),
	"ledger-file":   predict.Files("*.jsonl"),
	"settings-file": predict.Files("*.yaml"),
}

func predictFlags(f *flag.FlagSet) map[string]complete.Predictor {
	flags := make(map[string]complete.Predictor)
	f.VisitAll(func(fl *flag.Flag) {
		if b, ok := fl.Value.(interface{ IsBoolFlag() bool }); ok && b.IsBoolFlag() {
			flags[fl.Name] = predict.Nothing
			return
		}
		if p, ok := flagPredictors[fl.Name]; ok {
			flags[fl.Name] = p
			return
		}
		flags[fl.Name] = predict.Something
	})
	return flags
}

// Completion returns the shell completion of the cst command, built from the
// registered subcommands and their flags.
func Completion() *complete.Command {
	args := argPredictors()
	root := &complete.Command{
		Sub:   make(map[string]*complete.Command),
		Flags: predictFlags(flag.CommandLine),
	}
	for _, g := range groups() {
		for _, c := range g.commands {
			fs := flag.NewFlagSet(c.Name(), flag.ContinueOnError)
			c.SetFlags(fs)
			root.Sub[c.Name()] = &complete.Command{
				Flags: predictFlags(fs),
				Args:  args[c.Name()],
			}
		}
	}
	return root
}
