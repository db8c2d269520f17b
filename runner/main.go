package main

import "github.com/runpod-serverless-metrics/runner/cli"

func main() {
	cli.Execute()
}
