package cmd

import (
	"fmt"
	"sort"

	"github.com/strandsim/strand/manager"
	"github.com/strandsim/strand/sim"
)

// A scenarioBuilder produces the initial process set for one replication of
// a scenario.
type scenarioBuilder func(exp Experiment) []manager.ProcessSpec

var scenarios = map[string]scenarioBuilder{
	"pingpong": pingPongSpecs,
	"mm1":      mm1Specs,
}

func scenarioNames() []string {
	names := make([]string, 0, len(scenarios))
	for name := range scenarios {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// buildRuns translates an experiment into one RunConfig per replication,
// each with its own derived seed.
func buildRuns(exp Experiment) ([]manager.RunConfig, error) {
	build, ok := scenarios[exp.Scenario]
	if !ok {
		return nil, fmt.Errorf("unknown scenario %q, have %v",
			exp.Scenario, scenarioNames())
	}

	configs := make([]manager.RunConfig, 0, exp.Replications)
	for i := 0; i < exp.Replications; i++ {
		configs = append(configs, manager.RunConfig{
			Name:      fmt.Sprintf("%s-%03d", exp.Name, i),
			Seed:      exp.Seed + int64(i),
			MaxTime:   sim.VTime(exp.MaxTime),
			MaxEvents: exp.MaxEvents,
			Processes: build(exp),
		})
	}

	return configs, nil
}

// pingPongSpecs alternates two processes at the same virtual time for a
// configured number of rounds, then lets a referee wait for both.
func pingPongSpecs(exp Experiment) []manager.ProcessSpec {
	rounds := int(exp.Param("rounds", 10))

	var ping, pong sim.ProcessID

	rally := func(interval sim.VTime) sim.ProcessFunc {
		return func(p *sim.Process) error {
			for i := 0; i < rounds; i++ {
				if err := p.Timeout(interval); err != nil {
					return err
				}
				if err := p.Yield(); err != nil {
					return err
				}
			}
			return nil
		}
	}

	return []manager.ProcessSpec{
		{
			Name: "ping",
			Body: func(p *sim.Process) error {
				ping = p.ID()
				return rally(1)(p)
			},
		},
		{
			Name: "pong",
			Body: func(p *sim.Process) error {
				pong = p.ID()
				return rally(1)(p)
			},
		},
		{
			Name: "referee",
			Body: func(p *sim.Process) error {
				if _, err := p.WaitFor(ping); err != nil {
					return err
				}
				_, err := p.WaitFor(pong)
				return err
			},
		},
	}
}

// mm1Specs models a single-server queue: a source emits customers with
// exponential inter-arrival times, and each customer seizes the server for
// an exponential service time.
func mm1Specs(exp Experiment) []manager.ProcessSpec {
	arrivalRate := exp.Param("arrival_rate", 1.0)
	serviceRate := exp.Param("service_rate", 1.25)
	customers := int(exp.Param("customers", 100))

	busy := false

	serve := func(service sim.Distribution) sim.ProcessFunc {
		return func(c *sim.Process) error {
			// Re-check after every wake-up: another customer woken by the
			// same event may have seized the server first.
			for busy {
				if err := c.WaitUntil(func() bool { return !busy }); err != nil {
					return err
				}
			}

			busy = true
			err := c.Timeout(service.Sample())
			busy = false

			return err
		}
	}

	return []manager.ProcessSpec{{
		Name: "source",
		Body: func(p *sim.Process) error {
			seed := uint64(p.RNG().Seed())
			arrivals := sim.NewExponential(arrivalRate, seed)
			service := sim.NewExponential(serviceRate, seed+1)

			for i := 0; i < customers; i++ {
				if err := p.Timeout(arrivals.Sample()); err != nil {
					return err
				}

				p.Spawn(fmt.Sprintf("customer-%d", i), serve(service))
			}

			return nil
		},
	}}
}
