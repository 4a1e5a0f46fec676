// Package layout draws contra-directional coupler cells in integer database
// units and hands the shapes to a Host. Shapes are synthesized into a buffer
// first and only replayed once the whole cell is known to be valid.
package layout
