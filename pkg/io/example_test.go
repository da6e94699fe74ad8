package io_test

import (
	"fmt"
	"os"
	"strings"

	"github.com/sadolini/openvino/pkg/io"
)

func ExampleReadYAML() {
	src := `
form: ops
nodes:
  - {id: 1, name: x, op: Parameter}
  - {id: 2, name: act, op: Relu}
  - {id: 3, name: out, op: Result}
edges:
  - {from: 1, to: 2}
  - {from: 2, to: 3}
`
	g, err := io.ReadYAML(strings.NewReader(src))
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	fmt.Println(g.NodeCount(), "nodes,", g.EdgeCount(), "edges")
	_ = io.WriteJSON(g, os.Stdout)
	// Output:
	// 3 nodes, 2 edges
	// {
	//   "form": "ops",
	//   "nodes": [
	//     {
	//       "id": 1,
	//       "name": "x",
	//       "op": "Parameter"
	//     },
	//     {
	//       "id": 2,
	//       "name": "act",
	//       "op": "Relu"
	//     },
	//     {
	//       "id": 3,
	//       "name": "out",
	//       "op": "Result"
	//     }
	//   ],
	//   "edges": [
	//     {
	//       "from": 1,
	//       "to": 2
	//     },
	//     {
	//       "from": 2,
	//       "to": 3
	//     }
	//   ]
	// }
}
