// Package services implements the driving port interfaces.
// Services contain the core business logic: the safe executor, the
// source registry and the ingestion manager that orchestrates fetches
// across sources.
package services
