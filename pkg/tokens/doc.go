// Package tokens provides fast character-ratio token estimation used by
// the input enforcement path to project budget usage before a model call.
package tokens
