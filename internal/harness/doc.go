// Package harness runs reconciliation scenarios against the engine.
//
// A scenario submits descriptions, moves the clock, and runs passes, then
// asserts on what reached the host. Every run uses a fresh engine over an
// in-memory host, a manual clock, sequential commit IDs and an in-memory
// journal, so traces are identical across runs and can be compared against
// golden files.
//
// # Scenario Format
//
//	name: keyed_rotation
//	description: "Reordering keyed children only moves them"
//	frame_budget: 0s        # optional; yield after every unit
//	steps:
//	  - submit:
//	      path: /
//	      priority: normal
//	      view:
//	        children:
//	          - {kind: item, key: a, attrs: {label: a}}
//	  - submit: {path: /a, cue: item.cue}
//	  - submit: {path: /a, delete: true}
//	  - advance: 300ms
//	  - work: {expect: yielded}
//	  - flush: {}
//	assertions:
//	  - type: host_tree
//	    tree: |
//	      item {"label":"a"}
//	  - type: mutation_count
//	    effect: move
//	    count: 3
//	  - type: mutation_order
//	    mutations: ["move item /c", "move item /a"]
//	  - type: pass_outcome
//	    step: 4
//	    outcome: yielded
//	    lanes: normal
//	  - type: journal
//	    table: commits
//	    where: {number: 1}
//	    expect: {mutation_count: 3}
//
// # Assertion Types
//
//   - host_tree: compares the final host rendering (host.Memory.Render)
//   - mutation_count: counts committed mutations, optionally of one effect
//   - mutation_order: verifies mutations appear in the specified order
//   - pass_outcome: checks the outcome and lanes of a step's last pass
//   - journal: queries a journal table and verifies expected values
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/keyed_rotation.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, err := range result.Errors {
//	        log.Println(err)
//	    }
//	}
package harness
