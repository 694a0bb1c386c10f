// Command arcs-prep parses TREC collections, topics and relevance judgments
// and builds stratified training sets for relevance models.
package main

import (
	"os"
)

func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
