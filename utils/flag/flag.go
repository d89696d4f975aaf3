/*
flag Package sets up cli flags shared across services

Usage:

	Flags listed in this package are shared across boundaries and service-agnostic.
	For service dependent flags please define in their respective package.
*/

package flag

import (
	"flag"
)

const (
	Scheduler = "scheduler"
	Pipeline  = "pipeline"
	Planner   = "planner"
	Bot       = "bot"
)

var (
	IsDevelopment *bool
	ServiceName   *string
)

func init() {
	IsDevelopment = flag.Bool("dev", true, "set to true if the current run is for development. default value is true")
	ServiceName = flag.String("service", Scheduler, "'scheduler', 'pipeline', 'planner' or 'bot'")
	flag.Parse()
}
