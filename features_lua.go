package main

func init() {
	compiledFeatures = append(compiledFeatures, "lua:scenarios", "lua:resources")
}
