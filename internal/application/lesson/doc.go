// Package lesson turns content keys into email bodies.
//
// It combines three pieces:
//   - Cache: the artifact store plus the lesson topic index;
//   - History: the "Day N: topic" summary fed into prompts;
//   - Provider: cache-or-generate with a bounded generation timeout.
//
// An artifact is generated at most once per key and reused by every student
// who reaches that key, until an operator invalidates it.
package lesson
