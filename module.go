package orkestrel

// ModuleBuilder is one registration action within a Module: it adds one
// or more Entry values to o's graph.
type ModuleBuilder func(o *Orchestrator) error

// Module groups related entry registrations into one reusable builder.
// A builder's error is wrapped with the module's name so a misregistered
// entry names its origin.
//
// Example:
//
//	var DatabaseModule = orkestrel.Module("database",
//	    orkestrel.AddEntry(dbEntry),
//	    orkestrel.AddEntry(poolEntry),
//	)
//
//	var AppModule = orkestrel.Module("app",
//	    orkestrel.AddModule(DatabaseModule),
//	    orkestrel.AddEntry(serverEntry),
//	)
func Module(name string, builders ...ModuleBuilder) ModuleBuilder {
	return func(o *Orchestrator) error {
		for _, builder := range builders {
			if builder == nil {
				continue
			}
			if err := builder(o); err != nil {
				return &ModuleError{Module: name, Cause: err}
			}
		}
		return nil
	}
}

// AddModule creates a ModuleBuilder that runs another module.
func AddModule(module ModuleBuilder) ModuleBuilder {
	return func(o *Orchestrator) error {
		if module == nil {
			return nil
		}
		return module(o)
	}
}

// AddEntry creates a ModuleBuilder that registers one entry.
func AddEntry(entry Entry) ModuleBuilder {
	return func(o *Orchestrator) error {
		return o.Register(entry)
	}
}

// ModuleError names the module a registration failure originated in.
type ModuleError struct {
	Module string
	Cause  error
}

func (e *ModuleError) Error() string {
	return e.Module + ": " + e.Cause.Error()
}

func (e *ModuleError) Unwrap() error { return e.Cause }
