/*
Package resilience provides a circuit breaker for calls into dependencies
that can hang or fail repeatedly, such as network share mount points.

# States

- Closed: calls pass through; consecutive failures are counted
- Open: calls fail immediately with ErrCircuitOpen
- Half-Open: after the cooldown one trial call decides the next state

	Closed --[Trip failures]-> Open --[cooldown]-> Half-Open --[success]-> Closed
	                                                   |
	                                               [failure]
	                                                   v
	                                                  Open

# Usage

	breaker := resilience.New("share:nas/public", resilience.Settings{
		Trip:     3,
		Cooldown: 30 * time.Second,
	})

	err := breaker.Call(2*time.Second, func() error {
		_, err := os.Stat("/mnt/public")
		return err
	})
*/
package resilience
