// Package container builds a dependency injection container out of a flat set
// of definitions, on top of github.com/samber/do/v2.
//
// # Overview
//
// A DefinitionSet maps entry names to rules. Each rule is registered as a lazy
// shared service: it runs on the first Get and its result is reused.
//
//	container.Value(cfg)                        // pre-built value
//	container.Create("example.com/app.Mailer")  // zero-argument construction
//	container.Autowire("example.com/app.Repo")  // constructor parameters resolved by type
//	container.FactoryOf(NewMailer)              // factory, parameters autowired
//	container.Get("mailer")                     // reference to another entry
//
// # Classes
//
// Go cannot construct a type from its name, so class identifiers go through a
// Registry:
//
//	classes := container.NewRegistry()
//	container.RegisterType[*Mailer](classes)
//	container.MustRegisterConstructor(classes, NewUserRepository)
//
// Identifiers default to TypeKey, the package path plus type name.
//
// # Building
//
//	b := container.NewBuilder(classes)
//	b.UseAutowiring(true)
//	b.AddDefinitions(defs)
//	c, err := b.Build()
//
//	repo, err := container.Resolve[*UserRepository](c, container.KeyOf[*UserRepository]())
//
// With autowiring enabled, Get of a registered class that has no entry adds an
// autowire rule on the fly.
//
// # Delegators
//
// A DelegatorDefinition decorates the entry previously stored under another
// key. The callback it receives resolves that entry:
//
//	container.DelegatorFunc(func(c *container.Container, name string, next container.Callback) (any, error) {
//	    inner, err := next()
//	    if err != nil {
//	        return nil, err
//	    }
//	    return &LoggingMailer{Inner: inner.(Mailer)}, nil
//	})
//
// # Compilation
//
// EnableCompilation writes CompiledContainer.yaml on the first build and loads
// it on later builds, ignoring definitions added meanwhile. Only plain values
// and identifier based factories and delegators can be compiled.
package container
