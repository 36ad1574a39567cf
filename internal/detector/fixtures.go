package detector

// The fixtures below are in raw camera coordinates, before mirroring. A
// subject's left side therefore appears at larger X.

// PinchingHandLandmarks returns a hand whose thumb and index tips touch,
// centred on (x, y).
func PinchingHandLandmarks(x, y float64) Landmarks {
	hand := handAt(x, y+0.15)
	hand[ThumbTip] = Landmark{X: x - 0.01, Y: y}
	hand[IndexTip] = Landmark{X: x + 0.01, Y: y}
	return hand
}

// OpenHandLandmarks returns a hand with thumb and index tips spread far
// apart, their midpoint at (x, y).
func OpenHandLandmarks(x, y float64) Landmarks {
	hand := handAt(x, y+0.15)
	hand[ThumbTip] = Landmark{X: x - 0.08, Y: y}
	hand[IndexTip] = Landmark{X: x + 0.08, Y: y}
	return hand
}

func handAt(x, wristY float64) Landmarks {
	hand := make(Landmarks, NumHandLandmarks)
	hand[Wrist] = Landmark{X: x, Y: wristY}

	// Fingers fan upward from the wrist, one column per finger.
	for finger := 0; finger < 5; finger++ {
		col := x - 0.06 + float64(finger)*0.03
		for joint := 1; joint <= 4; joint++ {
			hand[finger*4+joint] = Landmark{X: col, Y: wristY - float64(joint)*0.03}
		}
	}
	return hand
}

// UprightPoseLandmarks returns a level pose whose shoulder midpoint is at
// (cx, cy) and whose shoulders are halfWidth away from it on either side.
func UprightPoseLandmarks(cx, cy, halfWidth float64) Landmarks {
	pose := make(Landmarks, NumPoseLandmarks)
	for i := range pose {
		pose[i] = Landmark{X: cx, Y: cy, Visibility: 0.9}
	}

	pose[PoseNose] = Landmark{X: cx, Y: cy - halfWidth, Visibility: 0.99}
	pose[PoseLeftShoulder] = Landmark{X: cx + halfWidth, Y: cy, Visibility: 0.99}
	pose[PoseRightShoulder] = Landmark{X: cx - halfWidth, Y: cy, Visibility: 0.99}
	pose[PoseLeftElbow] = Landmark{X: cx + halfWidth*1.2, Y: cy + halfWidth, Visibility: 0.9}
	pose[PoseRightElbow] = Landmark{X: cx - halfWidth*1.2, Y: cy + halfWidth, Visibility: 0.9}
	pose[PoseLeftWrist] = Landmark{X: cx + halfWidth*1.1, Y: cy + halfWidth*2, Visibility: 0.8}
	pose[PoseRightWrist] = Landmark{X: cx - halfWidth*1.1, Y: cy + halfWidth*2, Visibility: 0.8}
	return pose
}

// FrontalFaceLandmarks returns a level face mesh with its nose bridge at
// (cx, cy). Eyes sit eyeHalf either side of centre and ears earHalf.
func FrontalFaceLandmarks(cx, cy, eyeHalf, earHalf float64) Landmarks {
	face := make(Landmarks, NumFaceLandmarks)
	for i := range face {
		face[i] = Landmark{X: cx, Y: cy}
	}

	face[FaceNoseBridge] = Landmark{X: cx, Y: cy}
	face[FaceRightEye] = Landmark{X: cx - eyeHalf, Y: cy}
	face[FaceLeftEye] = Landmark{X: cx + eyeHalf, Y: cy}
	face[FaceRightEar] = Landmark{X: cx - earHalf, Y: cy + eyeHalf}
	face[FaceLeftEar] = Landmark{X: cx + earHalf, Y: cy + eyeHalf}
	return face
}
