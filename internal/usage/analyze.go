package usage

// TemplateExtractor returns the template markup of a file, or false when
// the file has none.
type TemplateExtractor interface {
	TemplateContent(fileContent string) (string, bool)
}

// ImportNameResolver returns the local name under which fileContent imports
// the component declared as declaredName, or false when unresolved.
type ImportNameResolver interface {
	ComponentImportName(fileContent, declaredName string) (string, bool)
}

// TemplateFunc adapts a function to TemplateExtractor.
type TemplateFunc func(fileContent string) (string, bool)

func (f TemplateFunc) TemplateContent(fileContent string) (string, bool) { return f(fileContent) }

// ImportNameFunc adapts a function to ImportNameResolver.
type ImportNameFunc func(fileContent, declaredName string) (string, bool)

func (f ImportNameFunc) ComponentImportName(fileContent, declaredName string) (string, bool) {
	return f(fileContent, declaredName)
}

// Analyzer computes Records for (dependency, dependent) pairs. It holds no
// mutable state; one Analyzer may serve any number of goroutines as long as
// nobody registers rules on its Validators concurrently.
type Analyzer struct {
	templates  TemplateExtractor
	imports    ImportNameResolver
	validators *Validators
}

// NewAnalyzer returns an Analyzer. A nil imports disables the alias retry;
// nil validators selects DefaultValidators.
func NewAnalyzer(templates TemplateExtractor, imports ImportNameResolver, validators *Validators) *Analyzer {
	if validators == nil {
		validators = DefaultValidators()
	}
	return &Analyzer{templates: templates, imports: imports, validators: validators}
}

// Validators returns the rule registries used by the Analyzer.
func (a *Analyzer) Validators() *Validators { return a.validators }

// Analyze reports which of dependency's channels dependent exercises.
// A dependent without template markup yields a Record with empty sets.
func (a *Analyzer) Analyze(dependent DependentFile, dependency *Component) Record {
	record := emptyRecord(dependent)
	if dependency == nil || a.templates == nil {
		return record
	}
	template, ok := a.templates.TemplateContent(dependent.FileContent)
	if !ok || template == "" {
		return record
	}

	fragment := Normalize(template)
	instances := Locate(fragment, dependency.Name)
	if len(instances) == 0 && a.imports != nil {
		if alias, ok := a.imports.ComponentImportName(dependent.FileContent, dependency.Name); ok && alias != "" {
			instances = Locate(fragment, alias)
		}
	}

	record.UsedProps = UsedIndices(instances, dependency.Props, a.validators.Props.Used)
	record.UsedEvents = UsedIndices(instances, dependency.Events, a.validators.Events.Used)
	record.UsedSlots = UsedIndices(instances, dependency.Slots, a.validators.Slots.Used)
	return record
}
