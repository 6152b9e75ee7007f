// Package insights aggregates a cleaned transaction dataset into the KPI
// bundle, the narrative overview and the per-tier chart series.
package insights
