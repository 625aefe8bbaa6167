// Package connectors holds upstream rate feeds. Each connector implements
// driven.RateSource for one source type and owns its own paging, retry
// and rate-limit behaviour.
package connectors
