package renderer

import (
	"fmt"
	"strings"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"
)

// =============================================================
//
//	Shaders
//
// =============================================================
type Shader struct {
	Name           string
	vertexSource   string
	fragmentSource string
	program        uint32
	uniforms       *UniformCache
}

// Compile builds and links the program. Sources must be NUL terminated.
func (shader *Shader) Compile() error {
	vertexShader, err := GenShader(shader.vertexSource, gl.VERTEX_SHADER)
	if err != nil {
		return fmt.Errorf("%s: %w", shader.Name, err)
	}
	fragmentShader, err := GenShader(shader.fragmentSource, gl.FRAGMENT_SHADER)
	if err != nil {
		gl.DeleteShader(vertexShader)
		return fmt.Errorf("%s: %w", shader.Name, err)
	}
	program, err := GenShaderProgram(vertexShader, fragmentShader)
	if err != nil {
		return fmt.Errorf("%s: %w", shader.Name, err)
	}
	shader.program = program
	shader.uniforms = NewUniformCache(program)
	return nil
}

func (shader *Shader) Use() {
	gl.UseProgram(shader.program)
}

func (shader *Shader) Delete() {
	if shader.program != 0 {
		gl.DeleteProgram(shader.program)
		shader.program = 0
	}
}

func (shader *Shader) SetMat4(name string, value mgl32.Mat4) {
	shader.uniforms.SetMat4(name, value)
}

func (shader *Shader) SetVec3(name string, value mgl32.Vec3) {
	shader.uniforms.SetVec3(name, value.X(), value.Y(), value.Z())
}

func (shader *Shader) SetVec4(name string, value mgl32.Vec4) {
	shader.uniforms.SetVec4(name, value.X(), value.Y(), value.Z(), value.W())
}

func (shader *Shader) SetFloat(name string, value float32) {
	shader.uniforms.SetFloat(name, value)
}

func (shader *Shader) SetInt(name string, value int32) {
	shader.uniforms.SetInt(name, value)
}

func (shader *Shader) SetBool(name string, value bool) {
	var v int32
	if value {
		v = 1
	}
	shader.uniforms.SetInt(name, v)
}

func GenShader(source string, shaderType uint32) (uint32, error) {
	shader := gl.CreateShader(shaderType)
	cSources, free := gl.Strs(source)
	gl.ShaderSource(shader, 1, cSources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)

		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(log))
		gl.DeleteShader(shader)

		return 0, fmt.Errorf("compile shader type %d: %s", shaderType, strings.TrimRight(log, "\x00"))
	}
	return shader, nil
}

func GenShaderProgram(vertexShader, fragmentShader uint32) (uint32, error) {
	program := gl.CreateProgram()
	gl.AttachShader(program, vertexShader)
	gl.AttachShader(program, fragmentShader)
	gl.LinkProgram(program)

	gl.DetachShader(program, vertexShader)
	gl.DeleteShader(vertexShader)
	gl.DetachShader(program, fragmentShader)
	gl.DeleteShader(fragmentShader)

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLength)

		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetProgramInfoLog(program, logLength, nil, gl.Str(log))
		gl.DeleteProgram(program)

		return 0, fmt.Errorf("link program: %s", strings.TrimRight(log, "\x00"))
	}
	return program, nil
}

var standardVertexShaderSource = `#version 410 core

layout(location = 0) in vec3 inPosition;
layout(location = 1) in vec2 inTexCoord;
layout(location = 2) in vec3 inNormal;

uniform mat4 model;
uniform mat4 viewProjection;

out vec2 fragTexCoord;
out vec3 Normal;
out vec3 FragPos;

void main() {
    vec4 world = model * vec4(inPosition, 1.0);
    FragPos = world.xyz;
    Normal = mat3(transpose(inverse(model))) * inNormal;
    fragTexCoord = inTexCoord;
    gl_Position = viewProjection * world;
}
` + "\x00"

// Metallic-roughness shading lit only by the equirectangular environment.
// Without an environment only emissive light reaches the screen.
var standardFragmentShaderSource = `#version 410 core

in vec2 fragTexCoord;
in vec3 Normal;
in vec3 FragPos;

uniform vec3 viewPos;
uniform vec4 baseColorFactor;
uniform vec3 emissiveFactor;
uniform float metallic;
uniform float roughness;
uniform float occlusionStrength;
uniform float exposure;
uniform bool toneMapped;

uniform sampler2D baseColorMap;
uniform sampler2D metallicRoughnessMap;
uniform sampler2D emissiveMap;
uniform sampler2D occlusionMap;
uniform sampler2D envMap;
uniform bool hasBaseColorMap;
uniform bool hasMetallicRoughnessMap;
uniform bool hasEmissiveMap;
uniform bool hasOcclusionMap;
uniform bool hasEnvMap;
uniform float envMaxLod;

out vec4 FragColor;

const float PI = 3.14159265359;

vec3 srgbToLinear(vec3 c) {
    return pow(c, vec3(2.2));
}

vec2 equirectUv(vec3 dir) {
    float u = atan(dir.z, dir.x) / (2.0 * PI) + 0.5;
    float v = 0.5 - asin(clamp(dir.y, -1.0, 1.0)) / PI;
    return vec2(u, v);
}

vec3 acesFilmic(vec3 color) {
    color *= exposure / 0.6;
    const mat3 inputMat = mat3(
        0.59719, 0.07600, 0.02840,
        0.35458, 0.90834, 0.13383,
        0.04823, 0.01566, 0.83777);
    const mat3 outputMat = mat3(
        1.60475, -0.10208, -0.00327,
        -0.53108, 1.10813, -0.07276,
        -0.07367, -0.00605, 1.07602);
    color = inputMat * color;
    vec3 a = color * (color + 0.0245786) - 0.000090537;
    vec3 b = color * (0.983729 * color + 0.4329510) + 0.238081;
    color = outputMat * (a / b);
    return clamp(color, 0.0, 1.0);
}

void main() {
    vec4 base = baseColorFactor;
    if (hasBaseColorMap) {
        vec4 texel = texture(baseColorMap, fragTexCoord);
        base *= vec4(srgbToLinear(texel.rgb), texel.a);
    }

    float metal = metallic;
    float rough = roughness;
    if (hasMetallicRoughnessMap) {
        vec4 mr = texture(metallicRoughnessMap, fragTexCoord);
        rough *= mr.g;
        metal *= mr.b;
    }
    rough = clamp(rough, 0.04, 1.0);

    float ao = 1.0;
    if (hasOcclusionMap) {
        ao = 1.0 + occlusionStrength * (texture(occlusionMap, fragTexCoord).r - 1.0);
    }

    vec3 emissive = emissiveFactor;
    if (hasEmissiveMap) {
        emissive *= srgbToLinear(texture(emissiveMap, fragTexCoord).rgb);
    }

    vec3 color = emissive;
    if (hasEnvMap) {
        vec3 N = normalize(Normal);
        vec3 V = normalize(viewPos - FragPos);
        vec3 R = reflect(-V, N);
        float NdotV = max(dot(N, V), 0.0);

        vec3 F0 = mix(vec3(0.04), base.rgb, metal);
        vec3 F = F0 + (max(vec3(1.0 - rough), F0) - F0) * pow(1.0 - NdotV, 5.0);

        vec3 irradiance = textureLod(envMap, equirectUv(N), envMaxLod).rgb;
        vec3 prefiltered = textureLod(envMap, equirectUv(R), rough * envMaxLod).rgb;

        vec3 kD = (1.0 - F) * (1.0 - metal);
        vec3 diffuse = kD * irradiance * base.rgb;
        vec3 specular = prefiltered * F;
        color += (diffuse + specular) * ao;
    }

    color = toneMapped ? acesFilmic(color) : clamp(color * exposure, 0.0, 1.0);
    FragColor = vec4(pow(color, vec3(1.0 / 2.2)), base.a);
}
` + "\x00"

// Full-screen triangle generated from gl_VertexID, no vertex buffers needed.
var fullscreenVertexShaderSource = `#version 410 core

out vec2 vUv;

void main() {
    vec2 pos = vec2(float((gl_VertexID << 1) & 2), float(gl_VertexID & 2));
    vUv = pos;
    gl_Position = vec4(pos * 2.0 - 1.0, 0.0, 1.0);
}
` + "\x00"

var rgbShiftFragmentShaderSource = `#version 410 core

in vec2 vUv;

uniform sampler2D tDiffuse;
uniform float amount;
uniform float angle;

out vec4 FragColor;

void main() {
    vec2 offset = amount * vec2(cos(angle), sin(angle));
    vec4 cr = texture(tDiffuse, vUv + offset);
    vec4 cga = texture(tDiffuse, vUv);
    vec4 cb = texture(tDiffuse, vUv - offset);
    FragColor = vec4(cr.r, cga.g, cb.b, cga.a);
}
` + "\x00"

func InitStandardShader() Shader {
	return Shader{
		Name:           "standard",
		vertexSource:   standardVertexShaderSource,
		fragmentSource: standardFragmentShaderSource,
	}
}

func InitRGBShiftShader() Shader {
	return Shader{
		Name:           "rgb-shift",
		vertexSource:   fullscreenVertexShaderSource,
		fragmentSource: rgbShiftFragmentShaderSource,
	}
}
