// Package nlu is the rule-based intent and entity extraction engine.
//
// It stands in for a trained model: rules are evaluated in a fixed order and
// the first one that matches decides the outcome. All tables are built once
// and only read afterwards, so an Engine is safe for concurrent use.
package nlu

// Engine classifies text and extracts the entities of the winning intent.
type Engine struct {
	classifier *Classifier
	extractor  *Extractor
}

// NewEngine wires a classifier and an extractor together.
func NewEngine(classifier *Classifier, extractor *Extractor) *Engine {
	return &Engine{classifier: classifier, extractor: extractor}
}

// NewDefaultEngine builds an engine from the default rule tables.
func NewDefaultEngine() (*Engine, error) {
	classifier, err := NewClassifier(DefaultRuleSpecs)
	if err != nil {
		return nil, err
	}
	extractor, err := NewExtractor(DefaultSlotSpecs)
	if err != nil {
		return nil, err
	}
	return NewEngine(classifier, extractor), nil
}

// Parse runs classification followed by extraction.
func (e *Engine) Parse(text string) ParseResult {
	intent, confidence := e.classifier.Classify(text)
	return ParseResult{
		Intent:     intent,
		Entities:   e.extractor.Extract(text, intent),
		Confidence: confidence,
	}
}

// Intents reports the intents this engine can return.
func (e *Engine) Intents() []Intent {
	return e.classifier.Intents()
}
