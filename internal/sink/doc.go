// Package sink delivers nation reports to downstream analytics.
//
// The log sink writes each report through the structured logger; the Kafka
// sink produces JSON records keyed by nation identity so a consumer sees
// the reports of one nation in tick order.
package sink
