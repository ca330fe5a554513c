package bcn

import "math"

// principalAxis returns the mean of the first dims channels of pts and the
// dominant eigenvector of their covariance, found by power iteration. The axis
// is zero when the points are all equal.
func principalAxis(pts [][4]float32, dims int) (mean, axis [4]float32) {
	if len(pts) == 0 {
		return
	}
	for _, p := range pts {
		for c := 0; c < dims; c++ {
			mean[c] += p[c]
		}
	}
	inv := 1 / float32(len(pts))
	for c := 0; c < dims; c++ {
		mean[c] *= inv
	}

	var cov [4][4]float32
	for _, p := range pts {
		var d [4]float32
		for c := 0; c < dims; c++ {
			d[c] = p[c] - mean[c]
		}
		for i := 0; i < dims; i++ {
			for j := i; j < dims; j++ {
				cov[i][j] += d[i] * d[j]
			}
		}
	}
	for i := 0; i < dims; i++ {
		for j := 0; j < i; j++ {
			cov[i][j] = cov[j][i]
		}
	}

	// Seed with the row of the largest variance.
	best := 0
	for c := 1; c < dims; c++ {
		if cov[c][c] > cov[best][best] {
			best = c
		}
	}
	if cov[best][best] < 1e-6 {
		return mean, axis
	}
	v := cov[best]
	for iter := 0; iter < 8; iter++ {
		var next [4]float32
		for i := 0; i < dims; i++ {
			for j := 0; j < dims; j++ {
				next[i] += cov[i][j] * v[j]
			}
		}
		var norm float32
		for c := 0; c < dims; c++ {
			norm += next[c] * next[c]
		}
		if norm < 1e-12 {
			break
		}
		s := 1 / float32(math.Sqrt(float64(norm)))
		for c := 0; c < dims; c++ {
			v[c] = next[c] * s
		}
	}
	return mean, v
}

// extent projects pts onto axis through mean and returns the endpoints of the
// covered segment.
func extent(pts [][4]float32, mean, axis [4]float32, dims int) (lo, hi [4]float32) {
	tmin, tmax := float32(math.MaxFloat32), float32(-math.MaxFloat32)
	for _, p := range pts {
		var t float32
		for c := 0; c < dims; c++ {
			t += (p[c] - mean[c]) * axis[c]
		}
		tmin = min(tmin, t)
		tmax = max(tmax, t)
	}
	for c := 0; c < dims; c++ {
		lo[c] = clamp255(mean[c] + tmin*axis[c])
		hi[c] = clamp255(mean[c] + tmax*axis[c])
	}
	return lo, hi
}

func clamp255(v float32) float32 {
	return min(max(v, 0), 255)
}

func sqDist(a, b [4]int32, dims int) int32 {
	var d int32
	for c := 0; c < dims; c++ {
		x := a[c] - b[c]
		d += x * x
	}
	return d
}

func texel(p [4]uint8) [4]int32 {
	return [4]int32{int32(p[0]), int32(p[1]), int32(p[2]), int32(p[3])}
}
