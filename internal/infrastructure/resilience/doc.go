/*
Package resilience provides circuit breakers for remote dependencies.

# Overview

Rendering many pages in a row often means hitting the same API host from
every page. When that host is down each render would otherwise wait out
its own retries. A breaker per host fails those fetches fast instead.

# States

	Closed --[Threshold failures]-> Open --[Cooldown]-> Half-Open --[probe ok]-> Closed
	                                                        |
	                                                  [probe fails]
	                                                        v
	                                                       Open

Half-open admits a single probe at a time.

# Usage

	breakers := resilience.NewGroup(resilience.DefaultSettings())
	err := breakers.Get(host).Call(func() error {
		return doRequest()
	}, nil)
*/
package resilience
