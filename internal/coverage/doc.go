// Package coverage reports which registered rules and constraints carry
// complete contracts.
//
// ValidateContracts walks a registry, rules first and then constraints, and
// sorts every descriptor into one of three buckets:
//
//	complete    contract present, no required field empty, all indexed
//	            artifacts present
//	incomplete  contract present but with gaps
//	missing     no contract attached
//
// A Report is a pure function of the registry contents and Options; with a
// fixed Now it is byte-for-byte reproducible in every output format.
//
// Formatters:
//
//	FormatText   checklist for terminals
//	FormatJSON   the Report as an indented JSON document
//	FormatSARIF  SARIF 2.1.0 log for code-scanning tools
package coverage
