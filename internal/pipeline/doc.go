// Package pipeline wires one activitymap run together.
//
// A heatmap run fetches records, normalizes them into canonical days, sums
// the values per day, lays the window out as a calendar grid and renders it.
// A word-cloud run does the same for tags, counting them for one year
// instead of building a grid:
//
//	source -> normalize -> aggregate -> calendar.Build   -> render
//	                                 \-> frequency.Build -> render
//
// Each stage runs inside an OpenTelemetry span named pipeline.<stage>. A run
// whose source yields no records leaves existing artifacts untouched.
package pipeline
