package cli

func (c *RootCommand) initFlags() {
	c.PersistentFlags().StringVarP(
		&c.Options.ConfigPath,
		"config",
		"c",
		"",
		"Path to the .env configuration file",
	)
	c.PersistentFlags().StringVarP(
		&c.Options.DataDir,
		"data-dir",
		"d",
		"",
		"Directory holding the heap files (overrides HEAPDB_DATA_DIR)",
	)
}
