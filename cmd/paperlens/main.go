// Package main is the entry point for paperlens, an admission-control and
// accounting gateway for a metered document analysis backend.
package main

func main() {
	Execute()
}
