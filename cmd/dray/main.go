package main

import (
	// Register Plugins via side-effects
	_ "dray/internal/collectors/http"
	_ "dray/internal/collectors/telegram"
	_ "dray/internal/publishers/file"
	_ "dray/internal/publishers/github"
	_ "dray/internal/publishers/stdout"
)

func main() {
	Execute()
}
