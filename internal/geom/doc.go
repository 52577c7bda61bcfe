// Package geom holds the small amount of 3D math the placement engine needs
// on top of gonum's spatial/r3 and num/quat: building orientations from a
// surface normal, ray/plane intersection, flattening vectors onto the
// horizontal plane, and 2D point-in-polygon tests in plane-local space.
//
// Convention: right-handed, world-up is +Y, an unrotated camera looks down -Z.
// Orientations map local +Z onto a surface's outward normal.
package geom
