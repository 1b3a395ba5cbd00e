// Package conversation derives stable conversation keys from chat identity
// and resolves them to remote backend conversations via lookup-or-create.
package conversation
