// Package llmfactory creates model backends from provider configuration.
package llmfactory
