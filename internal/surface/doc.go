// Package surface turns noisy per-frame geometric samples into a single
// stable placement target.
//
// Each frame the tracker receives ray-intersection hits (one floor-seeking
// vertical ray and several wall-seeking rays), optional detected-plane
// polygons and the camera pose. It builds floor and wall candidates from
// three paths (planes, wall rays, per-hit axes), picks one with level/down
// biases and a short hysteresis window, and falls back to a remembered
// ("locked") wall or an estimated wall in front of the camera when nothing
// passes the gates.
//
// All cross-frame memory lives in an explicit TrackingState owned by the
// caller; the Tracker itself is stateless apart from its Config.
package surface
