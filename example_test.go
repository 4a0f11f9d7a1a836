package inspector_test

import (
	"context"
	"fmt"
	"log"

	inspector "github.com/facebook/flipper-sub000"
	"github.com/facebook/flipper-sub000/pkg/domain"
	"github.com/facebook/flipper-sub000/pkg/registry"
	"github.com/facebook/flipper-sub000/pkg/sample"
)

// ExampleNew inspects the sample widget tree without a remote connection.
func ExampleNew() {
	reg := registry.New()
	sample.Register(reg)
	window := sample.NewDemo()

	ins, err := inspector.New(window, inspector.WithRegistry(reg))
	if err != nil {
		log.Fatal(err)
	}
	defer ins.Close(context.Background())

	ctx := context.Background()
	res, err := ins.Session().Call(ctx, domain.MethodGetSearchResults, map[string]any{"query": "cancel"})
	if err != nil {
		log.Fatal(err)
	}
	result := res.(domain.SearchResultsResponse).Results
	result.Walk(func(n *domain.SearchResultNode) {
		fmt.Println(n.Element.Name, n.IsMatch)
	})
	// Output:
	// Demo false
	// Button true
}
