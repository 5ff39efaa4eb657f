// Package grammar walks EXI event streams with compiled grammars.
//
// A Schema holds a document grammar and element grammars made of rules, each
// rule listing the productions allowed in that state. The event code of a
// production is its index in the rule; rules may have a second level reached
// through an escape code after the first level productions. Parser decodes
// events from a stream.BitBuffer and reports them to a ContentHandler;
// Serializer encodes the same events.
//
// Elements without a schema grammar, such as those matched by a wildcard, use
// a built-in grammar that learns the productions it sees, so repeated
// structures get shorter codes. Learned grammars belong to one walk.
//
// The header package bootstraps a Parser with the fixed options grammar to
// decode the options document embedded in a stream header.
package grammar
