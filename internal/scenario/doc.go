// Package scenario defines the battery of simulator invocations.
//
// A scenario is one full invocation of the external cache simulator: an
// instruction-cache configuration, zero or more data-cache level
// configurations and a trace file. The configuration strings are passed
// through verbatim; this package never interprets the simulator grammar.
//
// # Table Files
//
// The built-in battery is returned by Default. Alternate batteries can be
// loaded from YAML or CUE files:
//
//	scenarios:
//	  - name: direct-mapped-icache
//	    icache: "8:1:1:x"
//	    trace: medium.txt
//	  - name: random-replacement
//	    icache: "8:4:8:R"
//	    trace: medium.txt
//	    skip: "random replacement output is non-deterministic"
//	  - name: three-level
//	    icache: "2048:4:4:L"
//	    dcache:
//	      - "1:2048:4:4:L:B:A"
//	      - "2:32768:4:2:L:B:A"
//	    trace: gzip.txt
//
// Scenarios are numbered from 1 in file order. The number selects the golden
// file the scenario is compared against.
package scenario
