package schema

const nodeConfigSource = `
#Scalar: bool | number | string

#Layer: null | {[string]: #Scalar}

#Namespace: null | {
	config_toml?: #Layer
	app_toml?:    #Layer
	...
}

#NodeConfig: {
	global?:         #Namespace
	specific_nodes?: null | {[string]: #Namespace}
	...
}
`

const inventorySource = `
#Host: null | {
	ansible_host?: string
	...
}

#Inventory: {
	all?: null | {
		hosts?: null | {[string]: #Host}
		...
	}
	...
}
`

const genesisConfigSource = `
#GenesisConfig: {
	...
}
`

func init() {
	registerBuiltins()
}

func registerBuiltins() {
	builtins := map[string]Definition{
		NodeConfig:    {Source: nodeConfigSource, Definition: "#NodeConfig"},
		Inventory:     {Source: inventorySource, Definition: "#Inventory"},
		GenesisConfig: {Source: genesisConfigSource, Definition: "#GenesisConfig"},
	}
	for name, def := range builtins {
		if err := Register(name, def); err != nil {
			panic(err)
		}
	}
}
