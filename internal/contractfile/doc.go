// Package contractfile loads rule and constraint contracts declared in YAML
// or CUE manifests.
//
// YAML manifests list descriptors:
//
//	rules:
//	  - id: auth.login
//	    description: Process login events
//	    contract:
//	      behavior: Emits UserLoggedIn for each LOGIN event
//	      examples:
//	        - given: no session
//	          when: LOGIN alice
//	          then: UserLoggedIn alice
//	      invariants: [one fact per login]
//	constraints:
//	  - id: auth.required
//	artifacts:
//	  tests: [auth.login]
//	  specs: [auth.login]
//
// CUE manifests key descriptors by id:
//
//	rules: "auth.login": {
//		description: "Process login events"
//		contract: {...}
//	}
//	constraints: "auth.required": {}
//	artifacts: tests: ["auth.login"]
//
// A descriptor without a contract block is loaded with no contract. A
// contract block without examples is rejected.
package contractfile
