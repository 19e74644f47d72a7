// Package simulation runs complete simulations of the social network model.
//
// A Scenario is a snapshot of everything that determines a run: construction
// parameters, fixed initial values, causal and step impacts, and the seed.
// Runs never share state. Each one rebuilds its network from the Scenario,
// so running the same Scenario twice produces the same Trial, and trials can
// run in parallel.
//
// Usage:
//
//	r := simulation.NewRunner(simulation.RunnerConfig{Logger: logger})
//	sc := simulation.DefaultScenario()
//	sc.Seed = 42
//	res, err := r.Run(ctx, sc)
//	fmt.Println(res.Trial.Depressed, res.Trial.Concealed)
package simulation
