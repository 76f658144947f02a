/*
Package resilience provides a circuit breaker for flaky lab equipment.

# Overview

Networked PDUs and similar lab gear fail in bursts: a rebooting PDU times
out every request for half a minute. The breaker stops hammering an
endpoint after consecutive failures and probes it again after a cooldown.

# Usage

	breaker := resilience.New("pdu-rack-3", resilience.Settings{
		FailureThreshold: 5,
		Cooldown:         30 * time.Second,
		OnStateChange: func(name string, from, to resilience.State) {
			log.Printf("breaker %s: %s -> %s", name, from, to)
		},
	})

	err := breaker.Do(func() error {
		return pdu.SwitchOn()
	})

# States

	Closed --[failures]-> Open --[cooldown]-> Half-Open --[success]-> Closed
	                                             |
	                                         [failure]
	                                             |
	                                             v
	                                           Open

Closed passes requests through. Open fails them immediately with
ErrCircuitOpen. Half-Open lets a single probe through.
*/
package resilience
