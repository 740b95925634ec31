// Package exec provides the notebook facade over an interpreter session.
//
// A [Notebook] owns one session and the console log the user sees. It runs
// code through [code.Executor], keeps uploaded data files in the
// interpreter's filesystem, installs packages and records every run in an
// optional history.
//
// # Basic Usage
//
//	nb, err := exec.New(exec.Options{Session: session})
//	if err != nil {
//	    return err
//	}
//	if _, err := nb.Init(ctx); err != nil {
//	    return err
//	}
//	result, err := nb.Run(ctx, "summary(mtcars$mpg)")
//	for _, msg := range result.Messages {
//	    fmt.Println(msg.Category, msg.Text)
//	}
//
// # Run Modes
//
// Only one operation touches the session at a time. With [RunModeQueue]
// callers wait for the session; with [RunModeReject] a call made while
// another is in flight fails with [ErrBusy].
//
// # Data Files
//
// [Notebook.Upload] writes files below Options.DataDir, where user code can
// read them with read.csv("name.csv"). [Notebook.Fetch] pulls a file from a
// registered [datasource.Source] first.
package exec
