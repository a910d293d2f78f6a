//go:build tools

// Package tools pins the versions of lint/static-analysis binaries used
// in CI via blank imports, the standard Go idiom for tracking tool
// dependencies in go.mod without them being linked into any real binary.
// This file is never compiled into sfse itself (build tag "tools").
package tools

import (
	_ "4d63.com/gochecknoinits"
	_ "github.com/gordonklaus/ineffassign"
	_ "github.com/jgautheron/goconst"
	_ "github.com/mibk/dupl"
	_ "github.com/stripe/safesql"
	_ "github.com/tsenart/deadcode"
	_ "golang.org/x/tools/cmd/goimports"
	_ "honnef.co/go/tools/cmd/staticcheck"
	_ "mvdan.cc/interfacer"
	_ "mvdan.cc/lint"
)
