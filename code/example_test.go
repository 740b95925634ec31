package code_test

import (
	"context"
	"fmt"

	"github.com/QuesmaOrg/demo-webr-ggplot/code"
	"github.com/QuesmaOrg/demo-webr-ggplot/runtime"
	"github.com/QuesmaOrg/demo-webr-ggplot/runtime/runtimetest"
)

func ExampleExecutor_Execute() {
	session := runtimetest.New()
	session.On("summary(x)", runtimetest.Script{
		Signals: []runtime.Signal{{Kind: runtime.KindMessage, Data: "computing summary"}},
		Value: &runtimetest.Object{
			Type:  "double",
			Print: []string{"   Min. 1st Qu.  Median    Mean 3rd Qu.    Max.", "      1       2       3       3       4       5"},
		},
		Visible: true,
	})

	exec, err := code.NewExecutor(session)
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	res := exec.Execute(context.Background(), "x <- 1:5\nmessage(\"computing summary\")\nsummary(x)")
	fmt.Println("success:", res.Success)
	for _, msg := range res.Messages {
		fmt.Printf("[%s] %s\n", msg.Category, msg.Text)
	}
	// Output:
	// success: true
	// [info] computing summary
	// [stdout]    Min. 1st Qu.  Median    Mean 3rd Qu.    Max.
	//       1       2       3       3       4       5
}

func ExampleWrap() {
	wrapped := code.Wrap("mean(x)")
	fmt.Println(len(wrapped) > len("mean(x)"))
	// Output:
	// true
}
