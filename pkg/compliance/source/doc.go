// Package source loads compliance rulesets from outside the binary.
//
// A FileSource reads one YAML file or a directory of them and merges the
// documents into a single compliance.RulesetSpec. A GitSource clones a
// ruleset repository and reads it through a FileSource, labelling the
// result with the commit it came from. FileWatcher and GitSource.Poll keep
// a compliance.RuleStore current; a ruleset that fails to compile never
// replaces the live one.
package source
